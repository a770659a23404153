package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"siren/internal/registry"
	"siren/internal/registry/auth"
	"siren/internal/registry/client"
	"siren/internal/registry/models"
	"siren/internal/registry/service"
	"siren/internal/registry/store"
	"siren/internal/registry/tokencache"
	id "siren/pkg/domain"
)

var lookupJSON bool

var lookupCmd = &cobra.Command{
	Use:   "lookup [siren]",
	Short: "Look up a company by SIREN number",
	Long: `Logs in to the registry with INPI_EMAIL and INPI_PASSWORD, fetches the company
and prints the normalized contact.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "output the contact as JSON")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	siren, err := id.ParseSirenNumber(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := newLogger(cmd.ErrOrStderr())

	creds := models.Credentials{Username: cfg.Registry.Email, Password: cfg.Registry.Password}
	tokens := tokencache.New(
		auth.New(cfg.Registry.BaseURL, auth.WithValidity(cfg.Registry.TokenValidity), auth.WithLogger(log)),
		creds,
		tokencache.WithAuthTimeout(cfg.Registry.AuthTimeout),
		tokencache.WithLogger(log),
	)
	cl := client.New(cfg.Registry.BaseURL,
		client.WithTimeout(cfg.Registry.Timeout),
		client.WithRetry(cfg.Registry.MaxRetries, cfg.Registry.RetryDelay),
		client.WithLogger(log),
	)
	svc, err := service.New(tokens, cl, store.NewInMemoryRecordStore(), service.WithLogger(log))
	if err != nil {
		return err
	}

	contact, err := svc.Lookup(cmd.Context(), siren)
	if err != nil {
		return describeLookupError(err)
	}

	if lookupJSON {
		data, err := json.MarshalIndent(contact, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal contact: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printContact(cmd, contact)
	return nil
}

func printContact(cmd *cobra.Command, c *models.Contact) {
	rows := []struct{ label, value string }{
		{"SIREN", c.SirenNumber},
		{"Company", c.CompanyName},
		{"First name", c.FirstName},
		{"Last name", c.LastName},
		{"Address", c.StreetAddress},
		{"City", c.City},
		{"Zip", c.PostalCode},
		{"Country", c.Country},
		{"Currency", c.Currency},
		{"Language", c.Language},
	}
	for _, row := range rows {
		cmd.Printf("%-11s %s\n", row.label+":", row.value)
	}
	for _, issue := range c.Issues {
		cmd.Printf("warning: %s\n", issue)
	}
}

func describeLookupError(err error) error {
	switch {
	case errors.Is(err, registry.ErrNoData):
		return errors.New("no data found for the provided SIREN number")
	case errors.Is(err, registry.ErrAuthentication):
		return fmt.Errorf("failed to authenticate with the registry: %w", err)
	}
	outcome := registry.Classify(err)
	if outcome.Kind == registry.OutcomeUpstreamHTTP {
		return fmt.Errorf("registry answered %d: %s", outcome.Status, outcome.Body)
	}
	return fmt.Errorf("lookup failed: %w", err)
}
