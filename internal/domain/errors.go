package domain

import "errors"

var (
	// ErrMissingArtifact reports that a persisted artifact (encoder or model)
	// could not be found.
	ErrMissingArtifact = errors.New("artifact not found")

	// ErrUnknownWeather reports a weather label outside the encoder's classes.
	ErrUnknownWeather = errors.New("unknown weather condition")

	// ErrInvalidTimestamp reports a timestamp that is empty or unparseable.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)
