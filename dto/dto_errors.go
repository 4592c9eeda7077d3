package dto

// Error taxonomy codes surfaced by the API.
const (
	CodeProjectNotFound   = "ec5_11"
	CodeNotUnique         = "ec5_22"
	CodeFormNotFound      = "ec5_29"
	CodeNotAuthorized     = "ec5_77"
	CodeEntryNotFound     = "ec5_236"
	CodeOwnerNotFound     = "ec5_239"
	CodeParentNotFound    = "ec5_250"
	CodeInvalidMapIndex   = "ec5_322"
	CodePerPageExceeded   = "ec5_335"
	CodeInvalidQueryParam = "ec5_99"
)

var errorTitles = map[string]string{
	CodeProjectNotFound:   "Project does not exist.",
	CodeNotUnique:         "Answer is not unique.",
	CodeFormNotFound:      "Form does not exist.",
	CodeNotAuthorized:     "This request is not authorized.",
	CodeEntryNotFound:     "Entry does not exist.",
	CodeOwnerNotFound:     "Branch owner entry not found.",
	CodeParentNotFound:    "Parent entry not found.",
	CodeInvalidMapIndex:   "Invalid map index.",
	CodePerPageExceeded:   "Per page limit exceeded.",
	CodeInvalidQueryParam: "Invalid value for query parameter.",
}

type APIError struct {
	Code   string `json:"code"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

type ErrorEnvelope struct {
	Errors []APIError `json:"errors"`
}

// Error lets an APIError travel through service return values and be
// picked back out with errors.As in the handlers.
func (e APIError) Error() string {
	return e.Code + ": " + e.Title
}

func NewError(code, source string) APIError {
	title, ok := errorTitles[code]
	if !ok {
		title = "Unknown error."
	}
	return APIError{Code: code, Title: title, Source: source}
}

func Errors(errs ...APIError) ErrorEnvelope {
	return ErrorEnvelope{Errors: errs}
}
