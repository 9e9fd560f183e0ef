package settings

import "errors"

var (
	// ErrInvalidKey indicates an empty or whitespace-only key.
	ErrInvalidKey = errors.New("settings: invalid key")
	// ErrInvalidStrategy indicates a debounced parameter that is not ManualCommit.
	ErrInvalidStrategy = errors.New("settings: debounced parameter must use manual commit")
	// ErrInvalidTimeout indicates a non-positive debounce window.
	ErrInvalidTimeout = errors.New("settings: debounce window must be positive")
	// ErrUnsupportedCommitStrategy indicates a CommitStrategy value outside the known set.
	ErrUnsupportedCommitStrategy = errors.New("settings: unsupported commit strategy")

	// ErrNilStore indicates a parameter constructed without a backing store.
	ErrNilStore = errors.New("settings: nil store")
	// ErrNilParameter indicates a debounced wrapper constructed without a parameter.
	ErrNilParameter = errors.New("settings: nil parameter")
	// ErrNilDispatcher indicates a debounced wrapper constructed without a dispatcher.
	ErrNilDispatcher = errors.New("settings: nil dispatcher")
	// ErrInvalidCodec indicates a codec missing its Read or Write function.
	ErrInvalidCodec = errors.New("settings: invalid codec")

	// ErrInvalidValue indicates a textual value that cannot be parsed for the setting's kind.
	ErrInvalidValue = errors.New("settings: invalid value")
	// ErrNotFound indicates the key is not registered.
	ErrNotFound = errors.New("settings: key not found")
	// ErrAlreadyRegistered indicates the same key is registered more than once.
	ErrAlreadyRegistered = errors.New("settings: already registered")
)
