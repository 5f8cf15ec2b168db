package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blackcoderx/postsync/pkg/auth"
	"github.com/blackcoderx/postsync/pkg/environment"
	"github.com/blackcoderx/postsync/pkg/report"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var authFlags struct {
	env          string
	authURL      string
	clientID     string
	clientSecret string
	showClaims   bool
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Check client credentials against an environment's token endpoint",
	Long: `auth performs the same client_credentials exchange the generated collection
runs before each request, so credentials can be verified before they are
pasted into Postman. Credentials come from flags, POSTSYNC_CLIENT_ID and
POSTSYNC_CLIENT_SECRET, or an interactive prompt.`,
	Example: `  postsync auth --env Dev`,
	RunE:    runAuth,
}

func init() {
	f := authCmd.Flags()
	f.StringVarP(&authFlags.env, "env", "e", "Dev", "environment whose auth_url is used")
	f.StringVar(&authFlags.authURL, "auth-url", "", "auth base URL (overrides --env)")
	f.StringVar(&authFlags.clientID, "client-id", "", "OAuth client id")
	f.StringVar(&authFlags.clientSecret, "client-secret", "", "OAuth client secret")
	f.BoolVar(&authFlags.showClaims, "claims", false, "print the token's JWT claims")
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	creds := auth.Credentials{
		AuthURL:      authFlags.authURL,
		ClientID:     firstNonEmpty(authFlags.clientID, viper.GetString("client_id")),
		ClientSecret: firstNonEmpty(authFlags.clientSecret, viper.GetString("client_secret")),
	}
	if creds.AuthURL == "" {
		target, ok := environment.Lookup(settings.Environments, authFlags.env)
		if !ok {
			return fmt.Errorf("unknown environment %q (known: %v)", authFlags.env, environment.Names(settings.Environments))
		}
		creds.AuthURL = target.AuthURL
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Client ID").
					Value(&creds.ClientID).
					Validate(func(s string) error {
						if s == "" {
							return errors.New("client ID is required")
						}
						return nil
					}),
				huh.NewInput().
					Title("Client Secret").
					EchoMode(huh.EchoModePassword).
					Value(&creds.ClientSecret),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
	}

	tok, err := (&auth.Exchanger{}).Exchange(cmd.Context(), creds)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	now := time.Now()
	fmt.Fprintln(out, report.SuccessStyle.Render(report.OKPrefix)+"token issued by "+creds.TokenURL())
	fmt.Fprintf(out, "Token type: %s\n", tok.TokenType)
	fmt.Fprintf(out, "Expires:    %s (in %s, from %s)\n",
		tok.Expiry.Format(time.RFC3339), tok.Expiry.Sub(now).Round(time.Second), tok.ExpirySource)
	if tok.NeedsRefresh(now) {
		fmt.Fprintln(out, report.WarnStyle.Render("The token expires within the refresh buffer; every request will fetch a new one."))
	}

	if authFlags.showClaims {
		claims, err := auth.Claims(tok.AccessToken)
		if err != nil {
			fmt.Fprintln(out, report.DimStyle.Render("The access token is not a JWT."))
			return nil
		}
		data, err := json.Marshal(claims)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, report.HighlightJSON(string(data)))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
