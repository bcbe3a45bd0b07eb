package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter, returning
// defaultVal when absent and rejecting values outside [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be an integer", key))
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be between %d and %d", key, min, max))
	}
	return value, nil
}
