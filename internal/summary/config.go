package summary

const (
	// DefaultMaxConcurrent is the max simultaneous backend summary calls.
	DefaultMaxConcurrent = 3

	// DefaultNotificationBuffer is the capacity of the delivery channel
	// handed to notification subscribers.
	DefaultNotificationBuffer = 16

	// DefaultFailureMessage is recorded when a request fails and the
	// server supplied no error text.
	DefaultFailureMessage = "Failed to generate summary. Please try again."
)

// Config holds configuration for the summary service.
type Config struct {
	// MaxConcurrent is the max simultaneous backend summary calls. Calls
	// beyond the limit wait, still showing as loading.
	MaxConcurrent int

	// NotificationBuffer is the channel capacity used for notification
	// subscribers.
	NotificationBuffer int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:      DefaultMaxConcurrent,
		NotificationBuffer: DefaultNotificationBuffer,
	}
}
