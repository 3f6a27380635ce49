package github

// issueResponse is the subset of GET /repos/{owner}/{repo}/issues/{number} we read.
type issueResponse struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Comments int    `json:"comments"`
	HTMLURL  string `json:"html_url"`
}

// commentResponse is one element of GET /repos/{owner}/{repo}/issues/{number}/comments.
type commentResponse struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

// statusRequest is the body of POST /repos/{owner}/{repo}/statuses/{sha}.
type statusRequest struct {
	State       string `json:"state"`
	TargetURL   string `json:"target_url,omitempty"`
	Description string `json:"description,omitempty"`
	Context     string `json:"context"`
}
