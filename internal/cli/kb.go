package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/clinical-sim/internal/clinical"
	"github.com/tatianab/clinical-sim/internal/store"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the knowledge base and the allow-list",
}

var kbImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Insert or replace knowledge-base documents from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		docs, err := parseDocuments(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		for _, d := range docs {
			if err := st.UpsertDocument(cmd.Context(), d); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"id": d.ID, "category": d.Category}).Debug("document stored")
		}
		logrus.WithField("count", len(docs)).Info("knowledge base updated")
		return nil
	},
}

var kbAllowCmd = &cobra.Command{
	Use:   "allow <email>...",
	Short: "Add e-mail addresses to the tutor allow-list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		for _, email := range args {
			if err := st.AllowEmail(cmd.Context(), email); err != nil {
				return fmt.Errorf("%s: %w", email, err)
			}
		}
		logrus.WithField("count", len(args)).Info("allow-list updated")
		return nil
	},
}

func init() {
	kbCmd.AddCommand(kbImportCmd, kbAllowCmd)
}

type documentFile struct {
	Documents []store.Document `yaml:"documents"`
}

// parseDocuments reads a `documents:` list. Documents without an id get a
// fresh one; categories are normalized and a missing category or content is
// an error.
func parseDocuments(data []byte) ([]store.Document, error) {
	var f documentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse documents: %w", err)
	}
	if len(f.Documents) == 0 {
		return nil, fmt.Errorf("no documents found")
	}
	for i := range f.Documents {
		d := &f.Documents[i]
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.Category = clinical.Normalize(d.Category)
		if d.Category == "" {
			return nil, fmt.Errorf("document %d (%s): missing category", i+1, d.Title)
		}
		if strings.TrimSpace(d.Content) == "" {
			return nil, fmt.Errorf("document %d (%s): missing content", i+1, d.Title)
		}
	}
	return f.Documents, nil
}
