package api_error

// JSONAPIError is the body of every failed JSON response. The UI script
// shows Msg to the user.
type JSONAPIError struct {
	Code         string `json:"code"`
	Msg          string `json:"msg"`
	ErrorDetails string `json:"error_details"`
}

func New(code string, msg string, details string) JSONAPIError {
	return JSONAPIError{
		Code:         code,
		Msg:          msg,
		ErrorDetails: details,
	}
}
