package certificate

// CreatedMessage is the confirmation returned for a successful issuance
const CreatedMessage = "Certificate created!"

// IssueRequest is the inbound issuance request
type IssueRequest struct {
	ID    string `json:"id" validate:"required,max=255"`
	Name  string `json:"name" validate:"required,max=255"`
	Grade string `json:"grade" validate:"required,max=64"`
}

// IssueResult is the outcome of a successful issuance
type IssueResult struct {
	Message string `json:"message"`
	// URL is empty when no artifact was published
	URL string `json:"url,omitempty"`
	// RecipientSaved reports whether the recipient record was written
	RecipientSaved bool `json:"-"`
}

// RecipientResponse is a stored recipient with its certificate URL
type RecipientResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade string `json:"grade"`
	// URL is empty when no certificate has been published
	URL string `json:"url,omitempty"`
}
