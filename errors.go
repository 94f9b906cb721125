package fbgo

import (
	"errors"

	"github.com/TimurManjosov/fbgo-sdk/internal/config"
)

// Construction-time and evaluation-time sentinel errors.
var (
	ErrInvalidEnvSecret       = config.ErrInvalidEnvSecret
	ErrInvalidURL             = config.ErrInvalidURL
	ErrUnsupportedDefaultType = errors.New("unsupported default value type")
)
