// Command token mints an access token for local development, signed with
// JWT_SECRET_KEY. Production tokens come from the HRIS auth service.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id placed in the user_id claim")
	role := flag.String("role", string(user.RoleEmployee), "owner, manager or employee")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET_KEY is required")
		os.Exit(1)
	}

	token, expiresAt, err := jwt.NewJWTService(secret, *ttl).GenerateAccessToken(jwt.Claims{
		UserID: *userID,
		Role:   user.Role(*role),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to generate token:", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintln(os.Stderr, "expires at", time.Unix(expiresAt, 0).Format(time.RFC3339))
}
