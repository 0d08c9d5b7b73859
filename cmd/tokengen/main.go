// Command tokengen issues operator tokens signed with JWT_SECRET_KEY.
//
//	tokengen -role manager -sub dispatch-desk -ttl 12h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/infrastructure/config"
)

func main() {
	role := flag.String("role", services.RoleVolunteer, "volunteer, manager or admin")
	subject := flag.String("sub", "", "who the token is issued to")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-sub is required")
		os.Exit(2)
	}
	if !services.ValidRole(*role) {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	token, err := services.NewJWTService(config.GetConfig()).GenerateToken(*subject, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
