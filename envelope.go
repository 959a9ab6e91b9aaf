package potluck

// Code is the machine-readable result code placed in every response envelope.
type Code string

const (
	CodeSuccess           Code = "I_SUCCESS"
	CodeNotAcceptingUsers Code = "I_NOT_ACCEPTING_NEW_USERS"
	CodeNotFound          Code = "E_NOTFOUND"
	CodeCommit            Code = "E_COMMIT"
	CodeIDNotNumber       Code = "E_IDNAN"
	CodeNameRequired      Code = "E_NAMEREQ"
	CodeNotUpdated        Code = "E_NOTUPDATED"
	CodeDBError           Code = "E_DBERROR"
	CodeInfoMissing       Code = "E_INFOMISSING"
	CodeNotDate           Code = "E_NOTDATE"
	CodeInvalidData       Code = "E_INVALIDDATA"
	CodeDuplicate         Code = "E_DUPLICATE"
	CodeUnauthorized      Code = "E_UNAUTHORIZED"
	CodeForbidden         Code = "E_FORBIDDEN"
	CodeAuthFailed        Code = "E_USER_AUTH_FAILED"
	CodeUserNotFound      Code = "E_USER_NOT_FOUND"
)

var codeMessages = map[Code]string{
	CodeSuccess:           "OK",
	CodeNotAcceptingUsers: "This service currently doesn't accept user registrations",
	CodeNotFound:          "Nothing was found",
	CodeCommit:            "Error committing transaction",
	CodeIDNotNumber:       "ID is not a number",
	CodeNameRequired:      "Name is required",
	CodeNotUpdated:        "The post was not updated",
	CodeDBError:           "Database error",
	CodeInfoMissing:       "Vital information is missing",
	CodeNotDate:           "Not a valid date",
	CodeInvalidData:       "Data is not valid",
	CodeDuplicate:         "An entry with the same unique value already exists",
	CodeUnauthorized:      "Unauthorized",
	CodeForbidden:         "Forbidden",
	CodeAuthFailed:        "Authentication failed",
	CodeUserNotFound:      "User not found",
}

// Message returns the user-facing message for the code.
func (c Code) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return string(c)
}

func (c Code) String() string {
	return string(c)
}

// Envelope is the uniform body of every JSON response.
type Envelope struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// NewEnvelope creates an Envelope with the standard message for the code.
func NewEnvelope(code Code, data interface{}) Envelope {
	return Envelope{
		Code:    code,
		Message: code.Message(),
		Data:    data,
	}
}

// ListEnvelope creates a success Envelope for a listing of n items. An empty
// listing is not a failure, but it is reported with CodeNotFound.
func ListEnvelope(data interface{}, n int) Envelope {
	if n < 1 {
		return NewEnvelope(CodeNotFound, data)
	}
	return NewEnvelope(CodeSuccess, data)
}

// ErrorEnvelope creates the Envelope that err is reported with, along with the
// HTTP status to send it with. Data is always an empty object.
func ErrorEnvelope(err error) (int, Envelope) {
	status, code := Classify(err)
	return status, NewEnvelope(code, struct{}{})
}
