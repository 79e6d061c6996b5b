package bot

import (
	"errors"

	"campusbites-telegram/api"
)

// errDetail extracts the user-facing message from an error: the backend's
// detail for API errors, the plain message otherwise.
func errDetail(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return err.Error()
}
