package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// identity returns the caller's claims from the verified token.
func identity(r *http.Request) (jwt.Claims, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return jwt.Claims{}, user.ErrInvalidToken
	}
	return jwt.ClaimsFromMap(claims)
}

// parsePeriod reads year and month query parameters. A missing parameter
// defaults to the current month in loc.
func parsePeriod(r *http.Request, now time.Time, loc *time.Location) (year int, month int, errField string) {
	local := now.In(loc)
	year, month = local.Year(), int(local.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, "year"
		}
		year = n
	}

	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, "month"
		}
		month = n
	}

	return year, month, ""
}

// queryList collects a repeatable parameter, also accepting comma separated values.
func queryList(r *http.Request, key string) []string {
	var values []string
	for _, raw := range r.URL.Query()[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func optionalQuery(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}
