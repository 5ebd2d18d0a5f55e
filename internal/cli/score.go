package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mind-engage/mindengage-psych/internal/psytest"
	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

// Report is what score prints.
type Report struct {
	TestID           string                            `json:"test_id"`
	Title            string                            `json:"title"`
	Score            float64                           `json:"score"`
	MaxPossibleScore float64                           `json:"max_possible_score"`
	Percentage       float64                           `json:"percentage"`
	Passed           bool                              `json:"passed"`
	FactorScores     map[string]int                    `json:"factor_scores"`
	Interpretation   map[string]scoring.Interpretation `json:"interpretation"`
	Questions        []psytest.AnswerDetail            `json:"questions"`
}

func newScoreCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an answer sheet against a test definition",
		Example: `  psyscore score --test big5.yaml --answers answers.json
  psyscore score -t big5.yaml -a answers.yaml --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := runScore(cmd.Context(), v.GetString("test"), v.GetString("answers"), v.GetBool("reject-out-of-range"))
			if err != nil {
				return err
			}
			if v.GetString("format") == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), renderReport(rep, newStyles(!v.GetBool("no-color"))))
			return err
		},
	}
	cmd.Flags().StringP("test", "t", "", "test definition file (YAML or JSON)")
	cmd.Flags().StringP("answers", "a", "", "answer sheet file (YAML or JSON)")
	cmd.Flags().Bool("reject-out-of-range", true, "treat ratings outside the item scale as unscoreable")
	_ = v.BindPFlag("test", cmd.Flags().Lookup("test"))
	_ = v.BindPFlag("answers", cmd.Flags().Lookup("answers"))
	_ = v.BindPFlag("reject-out-of-range", cmd.Flags().Lookup("reject-out-of-range"))
	return cmd
}

func runScore(ctx context.Context, testPath, answersPath string, rejectOutOfRange bool) (Report, error) {
	if testPath == "" || answersPath == "" {
		return Report{}, errors.New("--test and --answers are required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	def, err := loadDefinition(testPath)
	if err != nil {
		return Report{}, err
	}
	answers, err := loadAnswers(answersPath)
	if err != nil {
		return Report{}, err
	}

	svc := psytest.NewService(psytest.NewMemoryStore(),
		psytest.WithScorer(scoring.NewScorer(scoring.WithOutOfRangeRejection(rejectOutOfRange))))
	def, err = svc.PutTest(ctx, def)
	if err != nil {
		return Report{}, err
	}
	a, err := svc.SubmitAttempt(ctx, psytest.SubmitRequest{TestID: def.ID, SessionID: "psyscore", Answers: answers})
	if err != nil {
		return Report{}, err
	}
	details, err := svc.GetAnswerDetails(ctx, a.ID)
	if err != nil {
		return Report{}, err
	}
	rep := Report{
		TestID:           def.ID,
		Title:            def.Title,
		Score:            a.Score,
		MaxPossibleScore: a.MaxPossibleScore,
		Percentage:       a.Percentage,
		Passed:           a.Passed,
		FactorScores:     a.FactorScores,
		Interpretation:   a.Interpretation,
		Questions:        details,
	}
	if rep.FactorScores == nil {
		rep.FactorScores = map[string]int{}
	}
	if rep.Interpretation == nil {
		rep.Interpretation = map[string]scoring.Interpretation{}
	}
	return rep, nil
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a test definition for structural problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := v.GetString("validate-test")
			if path == "" {
				return errors.New("--test is required")
			}
			def, err := loadDefinition(path)
			if err != nil {
				return err
			}
			st := newStyles(!v.GetBool("no-color"))
			if err := psytest.ValidateDefinition(def); err != nil {
				var ve *psytest.ValidationError
				if errors.As(err, &ve) {
					fmt.Fprint(cmd.OutOrStdout(), renderProblems(path, ve, st))
				}
				return fmt.Errorf("%s is not valid", path)
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.ok.Render(fmt.Sprintf("%s: ok (%d questions, %d factors)", path, len(def.Questions), len(def.Factors))))
			return nil
		},
	}
	cmd.Flags().StringP("test", "t", "", "test definition file (YAML or JSON)")
	_ = v.BindPFlag("validate-test", cmd.Flags().Lookup("test"))
	return cmd
}
