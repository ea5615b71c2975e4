package cmd

import (
	"fmt"
	"os"

	"elective-allocation/internal/config"
	"elective-allocation/pkg/logger"
	"elective-allocation/pkg/token"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenRole    string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed API token",
	Long: `Mint a bearer token for the API. The subject is the caller's id; for
students it must be their student id.`,
	Run: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "caller id (uuid)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", token.RoleAdmin, "admin, faculty or student")
	tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, args []string) {
	subject, err := uuid.Parse(tokenSubject)
	if err != nil {
		logger.Error("Invalid subject %q: %v", tokenSubject, err)
		os.Exit(1)
	}

	cfg := config.Get()
	signed, expiresAt, err := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL()).Issue(subject, tokenRole)
	if err != nil {
		logger.Error("Failed to issue token: %v", err)
		os.Exit(1)
	}

	fmt.Println(signed)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
}
