// CutFrame allocates door and window profile pieces onto stock bars.
//
// Usage:
//
//	cutframe -in orders.xlsx [-out result.xlsx] [-report plan.pdf] [-labels labels.pdf]
//
// The annotated table is written next to the input as <name>_CutFrame.<ext>
// unless -out is given. A JSON summary is printed to stdout.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/piwi3910/CutFrame/internal/config"
	"github.com/piwi3910/CutFrame/internal/engine"
	"github.com/piwi3910/CutFrame/internal/export"
	"github.com/piwi3910/CutFrame/internal/importer"
	"github.com/piwi3910/CutFrame/internal/model"
	"github.com/piwi3910/CutFrame/internal/project"
)

type options struct {
	In         string
	Out        string
	Report     string
	Labels     string
	ConfigFile string
	Materials  string
	Prefs      string
	Policy     string
	Backup     string
	Restore    string
	Waste      float64
	Price      float64
	Compare    bool
	Verbose    bool
}

type scenarioLine struct {
	Name         string  `json:"name"`
	Bars         int     `json:"bars"`
	OversizeBars int     `json:"oversize_bars"`
	WastePercent float64 `json:"waste_percent"`
	Unassigned   int     `json:"unassigned"`
}

type purchaseLine struct {
	Material string `json:"material_name"`
	model.PurchaseEstimate
}

type report struct {
	Input       string             `json:"input"`
	Output      string             `json:"output"`
	PlanID      string             `json:"plan_id"`
	Settings    model.CutSettings  `json:"settings"`
	Summary     model.Summary      `json:"summary"`
	Warnings    []string           `json:"warnings,omitempty"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
	Purchase    []purchaseLine     `json:"purchase"`
	Scenarios   []scenarioLine     `json:"scenarios,omitempty"`
}

func main() {
	var opts options
	flag.StringVar(&opts.In, "in", "", "Input piece list (.csv or .xlsx)")
	flag.StringVar(&opts.Out, "out", "", "Output table (.csv or .xlsx), default <in>_CutFrame.<ext>")
	flag.StringVar(&opts.Report, "report", "", "Write a PDF cutting report to this path")
	flag.StringVar(&opts.Labels, "labels", "", "Write a PDF of QR piece labels to this path")
	flag.StringVar(&opts.ConfigFile, "config", "", "Config file (yaml); cutting settings then come from it instead of saved preferences")
	flag.StringVar(&opts.Materials, "materials", "", "Material length table (json)")
	flag.StringVar(&opts.Prefs, "prefs", project.DefaultConfigPath(), "Preferences file")
	flag.StringVar(&opts.Policy, "policy", "", "No-fit policy: force-single or abandon")
	flag.StringVar(&opts.Backup, "backup", "", "Write preferences and material table to this backup file and exit")
	flag.StringVar(&opts.Restore, "restore", "", "Restore preferences and material table from this backup file and exit")
	flag.Float64Var(&opts.Waste, "waste", 10, "Waste allowance in percent for the purchase estimate")
	flag.Float64Var(&opts.Price, "price", 0, "Price per stock bar for the purchase estimate")
	flag.BoolVar(&opts.Compare, "compare", false, "Also compare what-if scenarios")
	flag.BoolVar(&opts.Verbose, "v", false, "Verbose logging")
	flag.Parse()

	if opts.In == "" && opts.Backup == "" && opts.Restore == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, stdout io.Writer) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}
	logCfg := cfg.Log
	if opts.Verbose {
		logCfg.Level = "debug"
	} else if opts.ConfigFile == "" {
		logCfg.Level = "warn"
	}
	logger, err := config.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	prefs, err := project.LoadAppConfig(opts.Prefs)
	if err != nil {
		logger.Warn("Cannot read preferences, using defaults", zap.String("path", opts.Prefs), zap.Error(err))
		prefs = model.DefaultAppConfig()
	}

	settings := cfg.Cutting.Settings()
	if opts.ConfigFile == "" {
		prefs.ApplyToSettings(&settings)
	}
	if opts.Policy != "" {
		policy, err := model.ParseNoFitPolicy(opts.Policy)
		if err != nil {
			return err
		}
		settings.NoFitPolicy = policy
	}

	materialsPath := opts.Materials
	if materialsPath == "" {
		materialsPath = cfg.Materials.SettingsPath
	}
	if materialsPath == "" {
		materialsPath = project.DefaultMaterialsPath()
	}

	if opts.Restore != "" {
		return restore(opts.Restore, opts.Prefs, materialsPath, stdout)
	}

	lengths, err := project.LoadMaterialLengths(materialsPath)
	if err != nil {
		return fmt.Errorf("load materials: %w", err)
	}

	if opts.Backup != "" {
		if err := project.ExportAllData(opts.Backup, prefs, lengths); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
		_, err := fmt.Fprintf(stdout, "Backup written to %s\n", opts.Backup)
		return err
	}

	imported := importer.Import(opts.In)
	if !imported.OK() {
		return fmt.Errorf("import %s: %s", opts.In, strings.Join(imported.Errors, "; "))
	}
	for _, w := range imported.Warnings {
		logger.Warn("Import warning", zap.String("file", opts.In), zap.String("warning", w))
	}

	out, result, err := engine.New(settings, lengths, logger).AllocateTable(imported.Table)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.In, err)
	}
	pieces, _, _ := model.PiecesFromTable(imported.Table)
	summary := model.Summarize(result, pieces)

	outPath := opts.Out
	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(opts.In), export.OutputFilename(opts.In, outputExt(opts.In)))
	}
	if err := export.ExportTable(outPath, out); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if opts.Report != "" {
		if err := export.ExportPDF(opts.Report, result, summary, settings); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if opts.Labels != "" {
		if err := export.ExportLabels(opts.Labels, result, pieces); err != nil {
			return fmt.Errorf("write labels: %w", err)
		}
	}

	rep := report{
		Input:       opts.In,
		Output:      outPath,
		PlanID:      result.PlanID,
		Settings:    settings,
		Summary:     summary,
		Warnings:    imported.Warnings,
		Diagnostics: result.Diagnostics,
		Purchase:    purchaseEstimates(pieces, lengths, settings, opts.Waste, opts.Price),
	}
	if opts.Compare {
		for _, cr := range engine.CompareScenarios(engine.BuildDefaultScenarios(settings), pieces, lengths) {
			rep.Scenarios = append(rep.Scenarios, scenarioLine{
				Name:         cr.Scenario.Name,
				Bars:         cr.BarsUsed,
				OversizeBars: cr.OversizeBars,
				WastePercent: cr.WastePercent,
				Unassigned:   cr.UnassignedCount,
			})
		}
	}

	prefs.AddRecentFile(opts.In)
	prefs.LastOpenDirectory = filepath.Dir(opts.In)
	prefs.LastSaveDirectory = filepath.Dir(outPath)
	if err := project.SaveAppConfig(opts.Prefs, prefs); err != nil {
		logger.Warn("Cannot save preferences", zap.String("path", opts.Prefs), zap.Error(err))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// purchaseEstimates gives one bar purchase estimate per material, counting
// every requested piece whether or not it was placed.
func purchaseEstimates(pieces []model.PieceRequirement, lengths model.MaterialLengthProvider, settings model.CutSettings, waste, price float64) []purchaseLine {
	byMaterial := make(map[string][]float64)
	var materials []string
	for _, p := range pieces {
		if _, ok := byMaterial[p.Material]; !ok {
			materials = append(materials, p.Material)
		}
		byMaterial[p.Material] = append(byMaterial[p.Material], p.Length)
	}
	sort.Strings(materials)

	lines := make([]purchaseLine, 0, len(materials))
	for _, m := range materials {
		lines = append(lines, purchaseLine{
			Material: m,
			PurchaseEstimate: model.CalculatePurchaseEstimate(
				byMaterial[m], lengths.MaterialLength(m), settings.KerfWidth, settings.EndTrim, waste, price),
		})
	}
	return lines
}

func restore(backupPath, prefsPath, materialsPath string, stdout io.Writer) error {
	data, err := project.ImportAllData(backupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if err := project.SaveAppConfig(prefsPath, data.Config); err != nil {
		return fmt.Errorf("restore preferences: %w", err)
	}
	if err := project.SaveMaterialLengths(materialsPath, data.Materials); err != nil {
		return fmt.Errorf("restore materials: %w", err)
	}
	_, err = fmt.Fprintf(stdout, "Restored backup from %s (created %s)\n", backupPath, data.CreatedAt)
	return err
}

// outputExt keeps the input's format; anything other than csv becomes xlsx.
func outputExt(in string) string {
	if strings.EqualFold(filepath.Ext(in), ".csv") {
		return "csv"
	}
	return "xlsx"
}
