// Command outcomes prints the recent flow outcomes of a hospital using the
// admin API. It mints a short-lived admin token from ADMIN_JWT_SECRET.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"

	httpmiddleware "github.com/wolfman30/hospital-assistant/internal/http/middleware"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/outcomes <hospital_id> [limit]")
		fmt.Println("Example: go run ./scripts/outcomes xyz_hospital 20")
		os.Exit(1)
	}

	hospitalID := os.Args[1]
	limit := "50"
	if len(os.Args) >= 3 {
		limit = os.Args[2]
	}

	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		fmt.Println("Error: ADMIN_JWT_SECRET environment variable not set")
		os.Exit(1)
	}

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	// Generate a token scoped to the one hospital
	claims := httpmiddleware.AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
		Hospitals: []string{hospitalID},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Printf("Error signing token: %v\n", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("%s/admin/hospitals/%s/outcomes?limit=%s", apiURL, hospitalID, limit)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+tokenString)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Error: HTTP %d\n", resp.StatusCode)
		fmt.Printf("Response: %s\n", string(body))
		os.Exit(1)
	}

	var result struct {
		Outcomes []struct {
			Type      string          `json:"type"`
			CreatedAt time.Time       `json:"created_at"`
			Delivered *time.Time      `json:"delivered_at"`
			Payload   json.RawMessage `json:"payload"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Response: %s\n", string(body))
		return
	}
	for _, o := range result.Outcomes {
		state := "pending"
		if o.Delivered != nil {
			state = "delivered"
		}
		fmt.Printf("%s  %-24s %-9s %s\n", o.CreatedAt.Format(time.RFC3339), o.Type, state, string(o.Payload))
	}
	fmt.Printf("%d outcome(s)\n", len(result.Outcomes))
}
