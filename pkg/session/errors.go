package session

import "errors"

var (
	// ErrSessionNotFound indicates no session was found
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrPlaceholderObserved indicates a lookup read the creation placeholder,
	// i.e. a session whose creator has not saved it yet (or crashed).
	ErrPlaceholderObserved = errors.New("session.placeholder_observed")

	// ErrIDCollision indicates every create attempt hit an existing key
	ErrIDCollision = errors.New("session.id_collision")

	// ErrTokenGeneration indicates identifier generation failed
	ErrTokenGeneration = errors.New("session.token_generation_failed")

	// ErrCodec indicates a session could not be encoded or decoded
	ErrCodec = errors.New("session.codec")

	// ErrStore indicates a key-value store command failed
	ErrStore = errors.New("session.store")

	// ErrNilSession indicates a nil session was passed to the manager
	ErrNilSession = errors.New("session.nil")

	// ErrNotStarted indicates the manager is not in the started state
	ErrNotStarted = errors.New("session.manager_not_started")

	// ErrInvalidState indicates a lifecycle transition from the wrong state
	ErrInvalidState = errors.New("session.invalid_lifecycle_state")

	// ErrPipelineNotAttached indicates the manager has no request pipeline
	ErrPipelineNotAttached = errors.New("session.pipeline_not_attached")

	// ErrUnknownCodec indicates the configured codec is not registered
	ErrUnknownCodec = errors.New("session.unknown_codec")

	// ErrNoStore indicates no store dialer is configured
	ErrNoStore = errors.New("session.no_store")

	// ErrNoTransport indicates no transport is configured
	ErrNoTransport = errors.New("session.no_transport")
)
