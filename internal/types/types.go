package types

// Request represents a single call sent to the server
type Request struct {
	ID       string
	Receiver string
	Method   string
	Arg      any
}

// Response represents a response returned by the server
type Response struct {
	ID      string
	IsError bool
	Error   string
	Return  any
}
