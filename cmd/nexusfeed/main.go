package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"nexusfeed/internal/config"
	"nexusfeed/internal/feed"
	"nexusfeed/internal/httpapi"
	"nexusfeed/internal/logging"
	"nexusfeed/internal/metrics"
	"nexusfeed/internal/model"
	"nexusfeed/internal/rank"
	"nexusfeed/internal/session"
	"nexusfeed/internal/social"
	"nexusfeed/internal/source"
	"nexusfeed/internal/store"
	"nexusfeed/internal/theme"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "seed":
		cmdSeed()
	case "feed":
		cmdFeed()
	case "score":
		cmdScore()
	case "serve":
		cmdServe()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: nexusfeed <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./nexusfeed.yaml")
	fmt.Println("  seed        Seed a demo tenant into the data store")
	fmt.Println("  feed        Print one feed page to stdout")
	fmt.Println("  score       Show the score breakdown for one feed item")
	fmt.Println("  serve       Run the feed HTTP API")
}

func fatal(err error) {
	fmt.Println("error:", err)
	os.Exit(1)
}

func openStore(cfg config.Config) *store.DB {
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		fatal(err)
	}
	return db
}

func buildAggregator(cfg config.Config, db *store.DB) *feed.Aggregator {
	graph := social.NewStoreGraph(db, cfg.Ranking.SignalLookbackDays)
	agg := feed.New(source.ForStore(db), graph, rank.New(cfg.Ranking), cfg.Feed)
	agg.Tenants = db
	return agg
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./nexusfeed.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		fatal(err)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	cfgPath := fs.String("config", "./nexusfeed.yaml", "config path")
	tenant := fs.Int64("tenant", 1, "tenant id to seed")
	_ = fs.Parse(os.Args[2:])
	cfg := loadOrDefault(*cfgPath)
	db := openStore(cfg)
	defer db.Close()
	if err := db.Seed(context.Background(), *tenant, time.Now().UTC()); err != nil {
		fatal(err)
	}
	fmt.Printf("Seeded demo data for tenant %d into %s\n", *tenant, cfg.Storage.DBPath)
}

func cmdFeed() {
	fs := flag.NewFlagSet("feed", flag.ExitOnError)
	cfgPath := fs.String("config", "./nexusfeed.yaml", "config path")
	tenant := fs.Int64("tenant", 1, "tenant id")
	viewer := fs.Int64("viewer", 0, "viewer user id (0 = anonymous)")
	algo := fs.String("algo", "ranked", "ranked or recent")
	location := fs.String("location", "global", "global or nearby")
	radius := fs.Float64("radius", 0, "nearby radius in km")
	page := fs.Int("page", 1, "page number")
	_ = fs.Parse(os.Args[2:])
	cfg := loadOrDefault(*cfgPath)
	db := openStore(cfg)
	defer db.Close()

	ctx := context.Background()
	vc := model.ViewerContext{ViewerID: *viewer, TenantID: *tenant, Now: time.Now().UTC()}
	if *viewer > 0 {
		if c, err := session.NewStoreSource(db).Coordinates(ctx, *tenant, *viewer); err == nil && c != nil {
			vc.Lat, vc.Lon = &c.Lat, &c.Lon
		}
	}

	res, err := buildAggregator(cfg, db).Aggregate(ctx, feed.Request{
		Viewer: vc,
		Mode:   feed.ParseMode(*algo),
		Geo:    feed.GeoParams{Nearby: *location == "nearby", RadiusKm: *radius},
		Page:   *page,
	})
	if err != nil {
		fatal(err)
	}
	fmt.Printf("mode=%s page=%d total=%d hasMore=%v\n", res.Mode, res.Page, res.Total, res.HasMore)
	for _, it := range res.Items {
		c := it.Candidate
		line := fmt.Sprintf("[%s #%d] %s", c.Kind, c.ID, firstNonEmpty(c.Title, c.Body))
		if it.Breakdown != nil {
			line += fmt.Sprintf("  (score %.3f)", it.Breakdown.Final)
		}
		fmt.Println(line)
	}
}

func cmdScore() {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	cfgPath := fs.String("config", "./nexusfeed.yaml", "config path")
	tenant := fs.Int64("tenant", 1, "tenant id")
	viewer := fs.Int64("viewer", 0, "viewer user id")
	kind := fs.String("kind", "post", "content kind")
	id := fs.Int64("id", 0, "item id")
	_ = fs.Parse(os.Args[2:])
	cfg := loadOrDefault(*cfgPath)
	db := openStore(cfg)
	defer db.Close()

	ctx := context.Background()
	var target *model.Candidate
	for _, f := range source.ForStore(db) {
		if f.Kind() != model.Kind(*kind) {
			continue
		}
		cands, err := f.Fetch(ctx, *tenant, *viewer, cfg.Feed.PerSourceLimit)
		if err != nil {
			fatal(err)
		}
		for i := range cands {
			if cands[i].ID == *id {
				target = &cands[i]
				break
			}
		}
	}
	if target == nil {
		fatal(fmt.Errorf("%s #%d not found in the candidate window", *kind, *id))
	}

	vc := model.ViewerContext{ViewerID: *viewer, TenantID: *tenant, Now: time.Now().UTC()}
	graph := social.NewStoreGraph(db, cfg.Ranking.SignalLookbackDays)
	connected, _ := graph.Connected(ctx, *viewer, target.AuthorID)
	b := rank.New(cfg.Ranking).Score(*target, vc, rank.Inputs{Connected: connected})
	fmt.Printf("%s #%d by %s (age %s)\n", target.Kind, target.ID, target.AuthorName,
		vc.Now.Sub(target.CreatedAt).Truncate(time.Minute))
	fmt.Printf("  engagement %.3f  (likes=%d comments=%d)\n", b.Engagement, target.LikesCount, target.CommentsCount)
	fmt.Printf("  vitality   %.3f\n", b.Vitality)
	fmt.Printf("  freshness  %.3f\n", b.Freshness)
	fmt.Printf("  geo        %.3f\n", b.Geo)
	fmt.Printf("  social     %.3f  (connected=%v)\n", b.Social, connected)
	fmt.Printf("  quality    %.3f\n", b.Quality)
	fmt.Printf("  final      %.3f\n", b.Final)
}

func cmdServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "./nexusfeed.yaml", "config path")
	addr := fs.String("addr", "", "listen address (overrides config)")
	_ = fs.Parse(os.Args[2:])
	cfg := loadOrDefault(*cfgPath)
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	db := openStore(cfg)
	defer db.Close()

	var coords session.CoordinateSource = session.NewStoreSource(db)
	if cfg.Redis.Addr != "" {
		coords = session.NewRedisCache(cfg.Redis, coords)
	}

	metrics.StartServer(cfg.Metrics.Addr)
	srv := httpapi.NewServer(buildAggregator(cfg, db), coords, cfg)
	logging.Info("serving feed", map[string]any{"addr": cfg.Server.Addr})
	if err := http.ListenAndServe(cfg.Server.Addr, srv.Handler()); err != nil {
		fatal(err)
	}
}

func loadOrDefault(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			cfg.ResolveEnv()
			return cfg
		}
		fatal(err)
	}
	return cfg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
