package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

const formatJSON = "json"

type generateOptions struct {
	requestFile string
	output      string
	format      string
	seed        int64
}

func newGenerateCommand() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a timetable from a YAML or JSON request file",
		Example: "  timetable generate -f request.yaml -o week.pdf\n" +
			"  timetable generate -f request.json --format csv --seed 42",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.requestFile, "file", "f", "", "request file (yaml or json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, stdout when empty")
	cmd.Flags().StringVar(&opts.format, "format", "", "pdf, csv or json (defaults to the output extension, then json)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed, overrides the request file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	log, err := logger.NewCLI(verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	req, err := loadRequest(opts.requestFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		seed := opts.seed
		req.Seed = &seed
	}

	format, err := resolveFormat(opts.format, opts.output)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	timetables := service.NewTimetableService(nil, nil, nil, nil, log, service.TimetableServiceConfig{
		MaxSections:      cfg.Generator.MaxSections,
		MaxClassesPerDay: cfg.Generator.MaxClassesPerDay,
		RetryCap:         cfg.Generator.RetryCap,
		ProposalTTL:      cfg.Generator.ProposalTTL,
	})
	proposal, err := timetables.Generate(cmd.Context(), req, "cli")
	if err != nil {
		return err
	}

	var payload []byte
	if format == formatJSON {
		payload, err = json.MarshalIndent(proposal, "", "  ")
	} else {
		payload, err = service.NewExportService(nil, nil, nil, service.ExportConfig{}, log, nil, nil).Render(proposal, format)
	}
	if err != nil {
		return err
	}

	for _, warning := range proposal.Warnings {
		log.Warn(warning.Message, zap.String("code", warning.Code), zap.String("section", warning.Section))
	}
	log.Info("timetable generated",
		zap.String("group", proposal.GroupName),
		zap.Int64("seed", proposal.Seed),
		zap.Int("sections", len(proposal.Timetable.Sections)),
		zap.String("format", format))

	if opts.output == "" {
		_, err = cmd.OutOrStdout().Write(payload)
		return err
	}
	if err := os.WriteFile(opts.output, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	return nil
}

// loadRequest reads the request through viper so YAML and JSON files share one code path.
func loadRequest(path string) (dto.GenerateTimetableRequest, error) {
	var req dto.GenerateTimetableRequest
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return req, fmt.Errorf("read request %s: %w", path, err)
	}
	if err := v.Unmarshal(&req); err != nil {
		return req, fmt.Errorf("decode request %s: %w", path, err)
	}
	return req, nil
}

func resolveFormat(flag, output string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(flag))
	if format == "" && output != "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	}
	if format == "" {
		format = formatJSON
	}
	switch format {
	case formatJSON, service.FormatPDF, service.FormatCSV:
		return format, nil
	}
	return "", fmt.Errorf("unsupported format %q, want pdf, csv or json", format)
}
