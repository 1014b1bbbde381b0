package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sahilm/fuzzy"

	"github.com/mintscout/pkg/config"
	"github.com/mintscout/pkg/db"
	"github.com/mintscout/pkg/feed"
	"github.com/mintscout/pkg/gecko"
	"github.com/mintscout/pkg/pricer"
	"github.com/mintscout/pkg/resolver"
	"github.com/mintscout/pkg/watch"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config invalid")
	}

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "resolve":
		runResolve(cfg, args[1:])
	case "watch":
		runWatch(cfg)
	case "find":
		runFind(cfg, strings.Join(args[1:], " "))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage: mintscout <command>")
	fmt.Println()
	fmt.Println("  resolve <query>...   resolve tickers, addresses or \"name phrases\" to canonical tokens")
	fmt.Println("  watch                poll feeds, resolve mentions and snapshot prices until interrupted")
	fmt.Println("  find <text>          fuzzy-search previously resolved tokens")
}

// queryMode picks the resolution mode for one CLI argument: valid chain
// addresses resolve as addresses, multi-word arguments as name phrases,
// everything else as a ticker.
func queryMode(arg string) resolver.Mode {
	if resolver.Classify(arg).IsAddress() {
		return resolver.ModeAddress
	}
	if strings.Contains(strings.TrimSpace(arg), " ") {
		return resolver.ModeName
	}
	return resolver.ModeTicker
}

func runResolve(cfg *config.Config, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: mintscout resolve <query> [query...]")
		os.Exit(2)
	}

	modeArgs := map[resolver.Mode][]string{}
	for _, arg := range args {
		mode := queryMode(arg)
		modeArgs[mode] = append(modeArgs[mode], arg)
	}

	engine := resolver.New(cfg, gecko.New(cfg))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	identities := map[resolver.Mode]map[string]resolver.TokenIdentity{}
	if in := modeArgs[resolver.ModeTicker]; len(in) > 0 {
		identities[resolver.ModeTicker] = engine.ResolveTickers(ctx, in)
	}
	if in := modeArgs[resolver.ModeAddress]; len(in) > 0 {
		identities[resolver.ModeAddress] = engine.ResolveAddresses(ctx, in)
	}
	if in := modeArgs[resolver.ModeName]; len(in) > 0 {
		identities[resolver.ModeName] = engine.ResolveNamePhrases(ctx, in)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Query", "Mode", "Token", "Key", "Chain", "Conf")

	seen := map[string]bool{}
	var resolved []resolver.TokenIdentity
	for _, arg := range args {
		mode := queryMode(arg)
		key := resolver.NormalizeQuery(mode, arg)
		if key == "" || seen[mode.String()+"|"+key] {
			continue
		}
		seen[mode.String()+"|"+key] = true

		id := identities[mode][key]
		chain := string(id.Chain)
		if chain == "" {
			chain = "-"
		}
		table.Append(arg, mode.String(), id.TokenDisplay, id.TokenKey, chain, colorConfidence(id.Confidence))
		if id.Chain != "" {
			resolved = append(resolved, id)
		}
	}
	table.Render()

	saveToCorpus(cfg, resolved)
}

// saveToCorpus records resolved identities so later `find` calls can see
// them. Best effort; a locked or missing db never fails the command.
func saveToCorpus(cfg *config.Config, identities []resolver.TokenIdentity) {
	if len(identities) == 0 {
		return
	}
	store, err := db.NewStore(cfg.DBPath)
	if err != nil {
		log.Debug().Err(err).Msg("corpus store unavailable")
		return
	}
	defer store.Close()

	for _, id := range identities {
		if err := store.UpsertResolvedToken(id.TokenKey, id.Chain, id.Symbol, id.Name); err != nil {
			log.Debug().Err(err).Str("token", id.TokenKey).Msg("corpus upsert failed")
		}
	}
}

func colorConfidence(conf int) string {
	s := fmt.Sprintf("%d", conf)
	switch {
	case conf >= 90:
		return color.New(color.FgGreen).Sprint(s)
	case conf >= 70:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgRed).Sprint(s)
	}
}

func runWatch(cfg *config.Config) {
	store, err := db.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer store.Close()

	// Seed tracked accounts from config
	for _, kf := range cfg.KOLFeeds {
		if _, err := store.UpsertKOL(kf.Handle, kf.URL); err != nil {
			log.Error().Err(err).Str("handle", kf.Handle).Msg("kol seed failed")
		}
	}

	api := gecko.New(cfg)
	poller := feed.NewPoller(cfg, store)
	worker := watch.NewWorker(cfg, store, resolver.New(cfg, api))
	prices := pricer.New(cfg, store, api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down...")
		cancel()
	}()

	errCh := make(chan error, 2)
	if len(cfg.KOLFeeds) > 0 {
		go func() { errCh <- poller.Run(ctx) }()
	} else {
		log.Warn().Msg("no feeds configured (KOL_FEEDS); only resolving queued mentions")
	}
	go func() { errCh <- worker.Run(ctx) }()

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.PriceSnapshotCron, func() { prices.SnapshotAll(ctx, 24) }); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.PriceSnapshotCron).Msg("bad price snapshot cron spec")
	}
	sched.Start()
	defer sched.Stop()

	printBanner(cfg, store)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("component failed")
		}
	}
	log.Info().Msg("goodbye 👋")
}

func printBanner(cfg *config.Config, store *db.Store) {
	stats, _ := store.GetStats()

	handles := make([]string, 0, len(cfg.KOLFeeds))
	for _, kf := range cfg.KOLFeeds {
		handles = append(handles, "@"+kf.Handle)
	}
	networks := make([]string, 0, len(cfg.Networks))
	for _, n := range cfg.Networks {
		networks = append(networks, string(n))
	}

	fmt.Println("\n" + strings.Repeat("═", 60))
	fmt.Println("  🪙 MINTSCOUT - WATCHING")
	fmt.Println(strings.Repeat("═", 60))
	fmt.Printf("  Feeds:     %s\n", strings.Join(handles, ", "))
	fmt.Printf("  Networks:  %s\n", strings.Join(networks, ", "))
	fmt.Printf("  Snapshots: cron %q\n", cfg.PriceSnapshotCron)
	if stats != nil {
		fmt.Printf("  DB: %d KOLs, %d posts, %d mentions (%d unresolved)\n",
			stats["kols"], stats["posts"], stats["token_mentions"], stats["unresolved_mentions"])
	}
	fmt.Println(strings.Repeat("═", 60) + "\n")
}

// tokenFuzzySource adapts the resolved-token corpus for fuzzy matching.
// Name, symbol and key are joined so any of them can hit.
type tokenFuzzySource []db.ResolvedToken

func (s tokenFuzzySource) Len() int {
	return len(s)
}

func (s tokenFuzzySource) String(i int) string {
	return fmt.Sprintf("%s_%s_%s",
		strings.Replace(strings.ToLower(s[i].Name), " ", "_", -1),
		strings.ToLower(s[i].Symbol),
		s[i].TokenKey)
}

func runFind(cfg *config.Config, query string) {
	if strings.TrimSpace(query) == "" {
		fmt.Println("usage: mintscout find <text>")
		os.Exit(2)
	}

	store, err := db.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer store.Close()

	tokens, err := store.GetResolvedTokens()
	if err != nil {
		log.Fatal().Err(err).Msg("resolved tokens query failed")
	}
	if len(tokens) == 0 {
		fmt.Println("no resolved tokens yet; run `mintscout watch` or `mintscout resolve` to build the corpus")
		return
	}

	needle := strings.Replace(strings.ToLower(strings.TrimSpace(query)), " ", "_", -1)
	matches := fuzzy.FindFrom(needle, tokenFuzzySource(tokens))
	if len(matches) == 0 {
		fmt.Printf("no matches for %q\n", query)
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Symbol", "Name", "Key", "Chain", "Last Seen")
	for i, m := range matches {
		if i >= 10 {
			break
		}
		tok := tokens[m.Index]
		symbol := tok.Symbol
		if symbol != "" {
			symbol = "$" + strings.ToUpper(symbol)
		}
		table.Append(symbol, tok.Name, tok.TokenKey, string(tok.Chain), tok.LastSeen.Format("2006-01-02 15:04"))
	}
	table.Render()
}
