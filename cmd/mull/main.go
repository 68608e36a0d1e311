package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mullnote/mull/internal/config"
	"github.com/mullnote/mull/internal/engine"
	"github.com/mullnote/mull/internal/lexicon"
	"github.com/mullnote/mull/internal/loop"
	"github.com/mullnote/mull/internal/mcp"
	"github.com/mullnote/mull/internal/prune"
	"github.com/mullnote/mull/internal/store"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "add":
		err = runAdd(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "show":
		err = runShow(os.Args[2:])
	case "edit":
		err = runEdit(os.Args[2:])
	case "delete":
		err = runDelete(os.Args[2:])
	case "emotions":
		err = runEmotions(os.Args[2:])
	case "biases":
		err = runBiases(os.Args[2:])
	case "loops":
		err = runLoops(os.Args[2:])
	case "prune":
		err = runPrune(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("mull %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are the flags shared by every command that touches the store.
type commonFlags struct {
	dbPath      string
	lexiconPath string
	rest        []string
}

func splitCommon(args []string) (commonFlags, error) {
	var out commonFlags
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--db":
			if i+1 >= len(args) {
				return out, fmt.Errorf("--db requires a path")
			}
			i++
			out.dbPath = args[i]
		case args[i] == "--lexicon":
			if i+1 >= len(args) {
				return out, fmt.Errorf("--lexicon requires a path")
			}
			i++
			out.lexiconPath = args[i]
		default:
			out.rest = append(out.rest, args[i])
		}
	}
	return out, nil
}

// openEngine resolves configuration, loads the lexicon, and opens the store.
func openEngine(flags commonFlags) (*engine.Engine, store.Store, config.ResolvedConfig, error) {
	cfg, err := config.ResolveConfig(config.ResolveOptions{
		CLIDBPath:      flags.dbPath,
		CLILexiconPath: flags.lexiconPath,
	})
	if err != nil {
		return nil, nil, cfg, err
	}

	lex, err := lexicon.Load(cfg.LexiconPath.Value)
	if err != nil {
		return nil, nil, cfg, fmt.Errorf("loading lexicon: %w", err)
	}

	st, err := store.NewStore(store.StoreConfig{DBPath: cfg.DBPath.Value})
	if err != nil {
		return nil, nil, cfg, fmt.Errorf("opening store: %w", err)
	}
	return engine.New(st, lex), st, cfg, nil
}

func runAdd(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}

	var tags []string
	modality := store.ModalityText
	var words []string
	rest := flags.rest
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--tags":
			if i+1 >= len(rest) {
				return fmt.Errorf("--tags requires a value")
			}
			i++
			for _, t := range strings.Split(rest[i], ",") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		case rest[i] == "--voice":
			modality = store.ModalityVoice
		case strings.HasPrefix(rest[i], "-"):
			return fmt.Errorf("unknown flag: %s", rest[i])
		default:
			words = append(words, rest[i])
		}
	}
	text := strings.Join(words, " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("usage: mull add <text> [--tags a,b] [--voice]")
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := eng.Capture(context.Background(), text, tags, modality)
	if err != nil {
		return err
	}
	fmt.Printf("Captured %s\n", n.ID)
	fmt.Printf("  valence %+.2f  arousal %.2f\n", n.Emotion.Valence, n.Emotion.Arousal)
	return nil
}

func runList(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}

	opts := store.ListOpts{Limit: 20}
	rest := flags.rest
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--limit":
			if i+1 >= len(rest) {
				return fmt.Errorf("--limit requires a number")
			}
			i++
			opts.Limit, err = strconv.Atoi(rest[i])
			if err != nil {
				return fmt.Errorf("invalid limit %q", rest[i])
			}
		case rest[i] == "--voice":
			opts.Modality = store.ModalityVoice
		default:
			return fmt.Errorf("unknown argument: %s", rest[i])
		}
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	notes, err := eng.Notes(context.Background(), opts)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Println("No notes yet. Capture one with: mull add <text>")
		return nil
	}
	for _, n := range notes {
		fmt.Printf("%s  %s  %s\n", n.ID[:8], n.CreatedAt.Local().Format("2006-01-02 15:04"), firstLine(n.Text, 60))
	}
	return nil
}

func runShow(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}
	if len(flags.rest) != 1 {
		return fmt.Errorf("usage: mull show <id>")
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := eng.Note(context.Background(), flags.rest[0])
	if err != nil {
		return err
	}
	fmt.Printf("ID:       %s\n", n.ID)
	fmt.Printf("Created:  %s\n", n.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Modality: %s\n", n.Modality)
	if len(n.Tags) > 0 {
		fmt.Printf("Tags:     %s\n", strings.Join(n.Tags, ", "))
	}
	if n.Emotion != nil {
		fmt.Printf("Emotion:  valence %+.2f, arousal %.2f\n", n.Emotion.Valence, n.Emotion.Arousal)
	}
	fmt.Printf("\n%s\n", n.Text)
	return nil
}

func runEdit(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}
	if len(flags.rest) < 2 {
		return fmt.Errorf("usage: mull edit <id> <text>")
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := eng.EditNote(context.Background(), flags.rest[0], strings.Join(flags.rest[1:], " "))
	if err != nil {
		return err
	}
	fmt.Printf("Updated %s\n", n.ID)
	fmt.Printf("  valence %+.2f  arousal %.2f\n", n.Emotion.Valence, n.Emotion.Arousal)
	return nil
}

func runDelete(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}
	if len(flags.rest) != 1 {
		return fmt.Errorf("usage: mull delete <id>")
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := eng.DeleteNote(context.Background(), flags.rest[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", flags.rest[0])
	return nil
}

func runEmotions(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	var report engine.EmotionReport
	switch len(flags.rest) {
	case 1:
		report, err = eng.AnalyzeNoteEmotions(context.Background(), flags.rest[0])
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("usage: mull emotions <id>")
	}

	fmt.Printf("Valence:   %+.2f\n", report.Score.Valence)
	fmt.Printf("Arousal:   %.2f\n", report.Score.Arousal)
	fmt.Printf("Intensity: %.2f\n", report.Intensity)
	if report.Emotions.Primary != "" {
		fmt.Printf("Primary:   %s\n", report.Emotions.Primary)
	}
	if len(report.Emotions.Secondary) > 0 {
		parts := make([]string, 0, len(report.Emotions.Secondary))
		for _, c := range report.Emotions.Secondary {
			parts = append(parts, string(c))
		}
		fmt.Printf("Secondary: %s\n", strings.Join(parts, ", "))
	}
	fmt.Printf("Domains:   %s\n", strings.Join(report.Context.Domains, ", "))
	if len(report.Context.Triggers) > 0 {
		fmt.Printf("Triggers:  %s\n", strings.Join(report.Context.Triggers, ", "))
	}
	if report.Shift.Detected {
		fmt.Printf("Shift:     valence %+.2f, arousal %+.2f (magnitude %.2f)\n",
			report.Shift.ValenceShift, report.Shift.ArousalShift, report.Shift.Magnitude)
	}
	return nil
}

func runBiases(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	signals, err := eng.EvaluateBiases(context.Background())
	if err != nil {
		return err
	}
	fmt.Println("Cognitive-bias signals (0.00 = no evidence, 1.00 = strong):")
	for sig, score := range signals {
		fmt.Printf("  %-15s %.2f\n", sig, score)
	}
	return nil
}

func runLoops(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	clusters, err := eng.ClusterLoops(context.Background())
	if err != nil {
		return err
	}
	if len(clusters) == 0 {
		fmt.Println("No recurring thought loops detected.")
		return nil
	}
	for _, c := range clusters {
		printCluster(c)
	}
	return nil
}

func printCluster(c loop.Cluster) {
	fmt.Printf("%s  strength %.2f  (%d notes, since %s)\n",
		c.Topic, c.Strength, len(c.NoteIDs), c.CreatedAt.Local().Format("2006-01-02"))
	for _, id := range c.NoteIDs {
		fmt.Printf("    %s\n", id)
	}
}

func runPrune(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}

	apply := false
	for _, arg := range flags.rest {
		switch arg {
		case "--apply":
			apply = true
		case "--dry-run", "-n":
			apply = false
		default:
			return fmt.Errorf("unknown argument: %s", arg)
		}
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	candidates, err := eng.PruneCandidates(ctx)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}

	fmt.Printf("%d pruning candidate(s):\n", len(candidates))
	for _, c := range candidates {
		fmt.Printf("  %.2f  %s  %s\n", c.Score, c.NoteID[:min(8, len(c.NoteID))], c.Title)
		for _, r := range c.Reasons {
			fmt.Printf("          - %s\n", r)
		}
	}

	if !apply {
		fmt.Println("\nDry run. Re-run with --apply to delete these notes.")
		return nil
	}

	deleted, err := prune.Execute(ctx, st, candidates)
	if err != nil {
		return err
	}
	if sqlStore, ok := st.(*store.SQLiteStore); ok {
		if err := sqlStore.Vacuum(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: vacuum failed: %v\n", err)
		}
	}
	fmt.Printf("\nDeleted %d note(s).\n", deleted)
	return nil
}

func runStats(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := eng.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Notes:    %d\n", stats.NoteCount)
	fmt.Printf("Scored:   %d\n", stats.ScoredCount)
	fmt.Printf("Voice:    %d\n", stats.VoiceCount)
	fmt.Printf("DB size:  %d bytes\n", stats.DBSizeBytes)
	return nil
}

func runConfig(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}

	cfg, err := config.ResolveConfig(config.ResolveOptions{
		CLIDBPath:      flags.dbPath,
		CLILexiconPath: flags.lexiconPath,
	})
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runMCP(args []string) error {
	flags, err := splitCommon(args)
	if err != nil {
		return err
	}

	eng, st, _, err := openEngine(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := mcp.NewServer(mcp.ServerConfig{Engine: eng, Store: st, Version: version})
	return mcp.ServeStdio(srv)
}

func firstLine(text string, limit int) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func printUsage() {
	fmt.Printf(`mull %s — local-first notes with self-reflection analysis

Usage:
  mull <command> [arguments]

Commands:
  add <text>          Capture a note (scored for emotion on write)
  list                List recent notes
  show <id>           Show one note with its emotion score
  edit <id> <text>    Replace a note's text and rescore it
  delete <id>         Delete one note
  emotions <id>       Full emotional analysis of a note
  biases              Evaluate the collection for cognitive-bias signals
  loops               Detect recurring thought loops
  prune               Rank forgettable notes (add --apply to delete)
  stats               Show store statistics
  config              Show the effective configuration and its sources
  mcp                 Run the MCP server on stdio
  version             Print version

Add Flags:
  --tags a,b          Attach comma-separated tags
  --voice             Mark the note as a transcribed voice capture

Flags:
  --db <path>         Database path (default ~/.mull/mull.db)
  --lexicon <path>    Keyword lexicon overrides (YAML)
  -h, --help          Show this help message
  -v, --version       Print version
`, version)
}
