package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"worklink/src/contracts"
	"worklink/src/render"
	"worklink/src/sanitize"
	"worklink/src/workitems"
)

var (
	mapJSON  bool
	mapPlain bool
	mapWidth int
)

// mapOutput is the --json shape of the map command.
type mapOutput struct {
	Status  string                   `json:"status"`
	Message string                   `json:"message,omitempty"`
	Links   []contracts.WorkItemLink `json:"links"`
}

// mapCmd maps build information in-process, without a broker or store.
var mapCmd = &cobra.Command{
	Use:   "map [build-info.json]",
	Short: "Map commit messages to GitHub work-item links",
	Long: `Read build information JSON from a file (or stdin) and print the GitHub
issues its commit messages reference.

Input:
  {"vcs_root": "https://github.com/owner/repo",
   "commits": [{"id": "abc123", "comment": "Fixes #12"}]}

Example:
  worklink map build.json
  git log --format='...' | jq ... | worklink map --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		build, err := readBuildInfo(path, cmd.InOrStdin())
		if err != nil {
			return err
		}

		mapper, err := newMapper(cmd.Context(), appConfig)
		if err != nil {
			return err
		}

		result, err := mapper.Map(cmd.Context(), build)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if mapJSON {
			links := sanitize.Links(result.Links)
			if links == nil {
				links = []contracts.WorkItemLink{}
			}
			return printJSON(out, mapOutput{Status: string(result.Status), Message: result.Message(), Links: links})
		}

		switch result.Status {
		case workitems.StatusFailed:
			return fmt.Errorf("mapping failed: %s", result.Message())
		case workitems.StatusDisabled:
			fmt.Fprintln(out, result.Message())
			return nil
		}

		fmt.Fprintln(out, render.LinkTable(result.Links, mapWidth, styles(mapPlain)))
		return nil
	},
}

// commitLinkCmd prints the web URL of a commit.
var commitLinkCmd = &cobra.Command{
	Use:   "commit-link [vcs-root] [commit-id]",
	Short: "Print the GitHub URL of a commit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		link, err := workitems.NewCommitLinkMapper(appConfig).Map(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if link == "" {
			return fmt.Errorf("no commit link: integration disabled or missing VCS root")
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

func init() {
	mapCmd.Flags().BoolVar(&mapJSON, "json", false, "Print links as JSON")
	mapCmd.Flags().BoolVar(&mapPlain, "plain", false, "Disable colors and borders")
	mapCmd.Flags().IntVar(&mapWidth, "width", render.DefaultWidth, "Table width in columns")
}
