// Command devtoken prints an access token for local testing of the
// booking API, signed with JWT_SECRET from the environment or .env.
package main

import (
    "flag"
    "fmt"
    "os"
    "strconv"

    "github.com/joho/godotenv"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/middleware"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/utils"
)

func main() {
    _ = godotenv.Load()
    user := flag.Uint64("user", 1, "user id placed in the sub claim")
    role := flag.String("role", middleware.RoleCustomer, "CUSTOMER or ADMIN")
    defTTL := 60
    if n, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_TTL_MIN")); err == nil && n > 0 {
        defTTL = n
    }
    ttl := flag.Int("ttl", defTTL, "lifetime in minutes (default ACCESS_TOKEN_TTL_MIN)")
    flag.Parse()

    secret := os.Getenv("JWT_SECRET")
    if secret == "" {
        fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
        os.Exit(1)
    }
    tok, err := utils.NewAccessToken(secret, *user, *role, *ttl)
    if err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
    fmt.Println(tok.Token)
}
