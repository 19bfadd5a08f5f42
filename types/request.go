package types

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// IngestRequest starts an ingestion run. Pages carry pre-extracted PDF text;
// the backend never touches the PDF itself.
type IngestRequest struct {
	DocumentID string        `json:"document_id"`
	Kind       string        `json:"kind"`
	Title      string        `json:"title"`
	Subject    string        `json:"subject,omitempty"`
	Pages      []PageContent `json:"pages"`
}

type SearchRequest struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}
