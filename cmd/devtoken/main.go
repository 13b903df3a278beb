// Command devtoken prints an access token for local testing.  Production
// tokens are issued by the identity service with the same secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/utils"
)

func main() {
	_ = godotenv.Load()

	userID := flag.Uint64("user", 1, "user id (sub claim)")
	role := flag.String("role", model.RoleCustomer, "role claim: CUSTOMER or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	tok, err := utils.NewAccessToken(secret, *userID, *role, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
}
