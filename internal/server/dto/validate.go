package dto

// Validatable is implemented by every request type. server.Wrap uses it as a
// type constraint so no handler runs on an unchecked request.
type Validatable interface {
	Validate() error
}
