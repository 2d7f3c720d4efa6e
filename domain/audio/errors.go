package audio

import "errors"

var (
	// ErrInputRequired is returned when no input path is given
	ErrInputRequired = errors.New("input file path is required")

	// ErrInvalidCeiling is returned when the size ceiling is not positive or too large to count in bytes
	ErrInvalidCeiling = errors.New("size ceiling must be greater than 0 MB and representable in bytes")

	// ErrInvalidMinBitrate is returned when the bitrate floor is not positive
	ErrInvalidMinBitrate = errors.New("minimum bitrate must be greater than 0 kbps")

	// ErrInvalidMaxBitrate is returned when the bitrate cap is below the floor
	ErrInvalidMaxBitrate = errors.New("maximum bitrate must not be below the minimum bitrate")

	// ErrInvalidMaxAttempts is returned when fewer than one attempt is allowed
	ErrInvalidMaxAttempts = errors.New("maximum attempts must be at least 1")

	// ErrInvalidSafetyMargin is returned when the margin is outside (0, 1]
	ErrInvalidSafetyMargin = errors.New("safety margin must be greater than 0 and at most 1")

	// ErrOutputIsInput is returned when the derived output path would overwrite the input
	ErrOutputIsInput = errors.New("output path would overwrite the input file")

	// ErrUnknownProfile is returned when a profile name is not recognised
	ErrUnknownProfile = errors.New("unknown audio profile")

	// ErrInvalidDuration is returned when a probed duration is not a positive finite number
	ErrInvalidDuration = errors.New("media duration must be a positive number of seconds")
)
