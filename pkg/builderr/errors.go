package builderr

import "fmt"

// Kind identifies the category of a BuilderError.
type Kind string

const (
	KindDuplicatePort         Kind = "duplicate_port"
	KindDuplicateAction       Kind = "duplicate_action"
	KindPortBindInvalid       Kind = "port_bind_invalid"
	KindPortConnectionInvalid Kind = "port_connection_invalid"
	KindReactionGraphCycle    Kind = "reaction_graph_cycle"
	KindNamedElementNotFound  Kind = "named_element_not_found"
	KindInvalidFqn            Kind = "invalid_fqn"
	KindKeyNotFound           Kind = "key_not_found"
	KindReactionBuilderError  Kind = "reaction_builder_error"
	KindInternal              Kind = "internal"
)

// BuilderError is the single error type returned by pkg/builder. Every
// precondition violation described in spec §4.1/§7 surfaces as one of these,
// with Kind set so calling code can branch with errors.As without parsing
// Error() strings.
type BuilderError struct {
	Kind    Kind
	Message string
	// Witness holds the cycle path for KindReactionGraphCycle, in edge order,
	// e.g. ["reactionA", "reactionB", "reactionA"].
	Witness []string
}

func (e *BuilderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is allows errors.Is(err, &BuilderError{Kind: K}) to match on Kind alone.
func (e *BuilderError) Is(target error) bool {
	t, ok := target.(*BuilderError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func DuplicateReactor(parent, name string) *BuilderError {
	return &BuilderError{Kind: KindDuplicatePort, Message: fmt.Sprintf("reactor %q already declared under %q", name, parent)}
}

func DuplicatePort(reactor, name string) *BuilderError {
	return &BuilderError{Kind: KindDuplicatePort, Message: fmt.Sprintf("port %q already declared on reactor %q", name, reactor)}
}

func DuplicateAction(reactor, name string) *BuilderError {
	return &BuilderError{Kind: KindDuplicateAction, Message: fmt.Sprintf("action %q already declared on reactor %q", name, reactor)}
}

func PortBindInvalid(reason string) *BuilderError {
	return &BuilderError{Kind: KindPortBindInvalid, Message: reason}
}

func PortConnectionInvalid(reason string) *BuilderError {
	return &BuilderError{Kind: KindPortConnectionInvalid, Message: reason}
}

func ReactionGraphCycle(witness []string) *BuilderError {
	return &BuilderError{
		Kind:    KindReactionGraphCycle,
		Message: fmt.Sprintf("cycle detected: %v", witness),
		Witness: witness,
	}
}

func NamedElementNotFound(kind, name string) *BuilderError {
	return &BuilderError{Kind: KindNamedElementNotFound, Message: fmt.Sprintf("no %s named %q", kind, name)}
}

func InvalidFqn(fqn string) *BuilderError {
	return &BuilderError{Kind: KindInvalidFqn, Message: fmt.Sprintf("invalid fully-qualified name %q", fqn)}
}

func KeyNotFound(kind string, key any) *BuilderError {
	return &BuilderError{Kind: KindKeyNotFound, Message: fmt.Sprintf("%s key not found: %v", kind, key)}
}

func ReactionBuilderInvalid(reason string) *BuilderError {
	return &BuilderError{Kind: KindReactionBuilderError, Message: reason}
}

func Internal(reason string) *BuilderError {
	return &BuilderError{Kind: KindInternal, Message: reason}
}
