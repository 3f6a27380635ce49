// Package render formats work-item links for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"worklink/src/contracts"
	"worklink/src/sanitize"
)

const (
	// DefaultWidth is used when the terminal width is unknown.
	DefaultWidth = 100

	minDescriptionWidth = 12
	maxIDWidth          = 10
	columnGap           = "  "
)

// LinkTable renders links as a fixed-width table that fits in width cells.
// URLs are never truncated so they stay clickable; descriptions absorb the
// remaining space.
func LinkTable(links []contracts.WorkItemLink, width int, styles Styles) string {
	links = sanitize.Links(links)
	if len(links) == 0 {
		return styles.Muted.Render("No work items found.")
	}
	if width <= 0 {
		width = DefaultWidth
	}

	idWidth := VisualWidth("#")
	for _, l := range links {
		idWidth = max(idWidth, VisualWidth(l.ID))
	}
	idWidth = min(idWidth, maxIDWidth)

	frame := styles.Box.GetHorizontalFrameSize()
	descWidth := max(width-frame-idWidth-2*len(columnGap)-urlWidth(links), minDescriptionWidth)

	var sb strings.Builder
	sb.WriteString(styles.Header.Render(
		TruncateAndPad("#", idWidth, false) + columnGap +
			TruncateAndPad("Description", descWidth, false) + columnGap + "Link"))

	for _, l := range links {
		sb.WriteString("\n")
		sb.WriteString(styles.ID.Render(TruncateAndPad(l.ID, idWidth, true)))
		sb.WriteString(columnGap)
		sb.WriteString(styles.Text.Render(TruncateAndPad(l.Description, descWidth, true)))
		sb.WriteString(columnGap)
		sb.WriteString(styles.URL.Render(l.LinkURL))
	}

	return styles.Box.Render(sb.String())
}

func urlWidth(links []contracts.WorkItemLink) int {
	w := VisualWidth("Link")
	for _, l := range links {
		w = max(w, VisualWidth(l.LinkURL))
	}
	return w
}

// Summary renders a one-line outcome for a mapping request.
func Summary(status *contracts.RequestStatus, styles Styles) string {
	label := styles.Success
	switch status.Status {
	case contracts.StatusFailed:
		label = styles.Failure
	case contracts.StatusDisabled, contracts.StatusPending, contracts.StatusProcessing:
		label = styles.Muted
	}

	parts := []string{
		label.Render(strings.ToUpper(status.Status)),
		styles.Muted.Render(status.RequestID),
	}
	if status.ReferencesTotal > 0 || status.LinksCount > 0 {
		parts = append(parts, fmt.Sprintf("%d reference(s), %d link(s)", status.ReferencesTotal, status.LinksCount))
	}
	if status.Message != "" && status.Status != contracts.StatusCompleted {
		parts = append(parts, sanitize.Line(status.Message))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, "  "))
}
