package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"exam-practice-service/internal/exam"
	"github.com/spf13/cobra"
)

// NewValidateCmd checks a question-set file without starting the server.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a JSON or YAML question set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return validateQuestionSet(cmd.OutOrStdout(), data)
		},
	}
}

func validateQuestionSet(out io.Writer, data []byte) error {
	set, err := exam.DecodeQuestionSet(data)
	if err != nil {
		return err
	}
	def, err := exam.BuildDefinition("validate", set)
	if err != nil {
		return err
	}

	sum := exam.Describe(def)
	fmt.Fprintf(out, "title:        %s\n", sum.Title)
	if sum.Subject != "" {
		fmt.Fprintf(out, "subject:      %s\n", sum.Subject)
	}
	fmt.Fprintf(out, "questions:    %d (%d multi-select)\n", sum.Questions, sum.MultiSelect)
	if sum.TimeLimitSeconds > 0 {
		fmt.Fprintf(out, "time limit:   %ds\n", sum.TimeLimitSeconds)
	}
	if len(sum.Topics) > 0 {
		fmt.Fprintf(out, "topics:       %s\n", strings.Join(sum.Topics, ", "))
	}
	return nil
}
