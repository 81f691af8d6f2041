// devtoken mints a short-lived bearer token for a user id, for poking the API
// locally without the accounts service.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"threads/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func main() {
	userID := flag.String("user", "", "hex ObjectID of the user the token is issued for")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	if _, err := primitive.ObjectIDFromHex(*userID); err != nil {
		log.Fatalf("invalid -user %q: %v", *userID, err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		UserID: *userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(*ttl)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		log.Fatal("Failed to sign token: ", err)
	}

	fmt.Println(signed)
}
