package executor

// codeBadUserInput marks errors caused by input the caller controls, such as
// variable or argument values that fail coercion.
const codeBadUserInput = "BAD_USER_INPUT"

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func badUserInputError(message string) GraphQLError {
	return GraphQLError{Message: message, Extensions: map[string]any{"code": codeBadUserInput}}
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}
