// Command seed fills the quotes table with generated data for local
// development and load testing, optionally announcing each quote on the
// upserts topic so a running search service indexes it immediately.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/quotelab/quotesearch/internal/ingest"
	"github.com/quotelab/quotesearch/pkg/config"
	"github.com/quotelab/quotesearch/pkg/kafka"
	"github.com/quotelab/quotesearch/pkg/logger"
	"github.com/quotelab/quotesearch/pkg/postgres"
)

var firstNames = []string{
	"Ada", "Alan", "Grace", "Edsger", "Donald", "Barbara", "John", "Leslie",
	"Margaret", "Dennis", "Ken", "Rob", "Frances", "Tim", "Linus", "Radia",
}

var lastNames = []string{
	"Lovelace", "Turing", "Hopper", "Dijkstra", "Knuth", "Liskov", "McCarthy",
	"Lamport", "Hamilton", "Ritchie", "Thompson", "Pike", "Allen", "Perlman",
}

var subjects = []string{
	"a pony", "the compiler", "every programmer", "a good test", "the network",
	"an index", "the cache", "a deadline", "simplicity", "the documentation",
}

var verbs = []string{
	"teaches", "forgives", "rides", "outlives", "rewards", "questions",
	"remembers", "betrays", "carries", "measures",
}

var objects = []string{
	"patient hands", "careful thought", "a thousand queries", "its own weight",
	"the honest mistake", "slow mornings", "every shortcut", "quiet persistence",
	"the second draft", "small kindnesses",
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	count := flag.Int("count", 1000, "number of quotes to generate")
	seed := flag.Int64("seed", 42, "random seed for reproducible corpora")
	publish := flag.Bool("publish", false, "announce each quote on the upserts topic")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, "text")

	ctx := context.Background()
	client, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	store := postgres.NewQuoteStore(client)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	var producer *kafka.Producer
	if *publish {
		producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QuoteUpserts)
		defer producer.Close()
	}

	rng := rand.New(rand.NewSource(*seed))
	start := time.Now()
	inserted := 0
	var pending []kafka.Event
	flush := func() {
		if producer == nil || len(pending) == 0 {
			return
		}
		if err := producer.PublishBatch(ctx, pending); err != nil {
			slog.Warn("failed to announce batch", "count", len(pending), "error", err)
		}
		pending = pending[:0]
	}
	for i := 0; i < *count; i++ {
		name := randomName(rng)
		quote := randomQuote(rng)
		id, ok, err := store.Insert(ctx, name, quote)
		if err != nil {
			slog.Error("insert failed", "error", err)
			os.Exit(1)
		}
		if !ok {
			// Duplicate quote body; the generator occasionally repeats.
			continue
		}
		inserted++
		if producer != nil {
			pending = append(pending, kafka.Event{
				Key:   fmt.Sprintf("%d", id),
				Value: ingest.QuoteMessage{ID: id, Name: name, Quote: quote},
			})
			if len(pending) >= 100 {
				flush()
			}
		}
	}
	flush()

	total, err := store.Count(ctx)
	if err != nil {
		slog.Error("count failed", "error", err)
		os.Exit(1)
	}
	slog.Info("seeding complete",
		"inserted", inserted,
		"requested", *count,
		"table_total", total,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}

func randomName(rng *rand.Rand) string {
	return firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
}

// randomQuote builds a short subject-verb-object sentence, sometimes
// chaining two clauses so the corpus has varied lengths and proximity
// structure.
func randomQuote(rng *rand.Rand) string {
	var b strings.Builder
	b.WriteString(clause(rng))
	if rng.Intn(3) == 0 {
		b.WriteString(", and ")
		b.WriteString(clause(rng))
	}
	return b.String()
}

func clause(rng *rand.Rand) string {
	return fmt.Sprintf("%s %s %s",
		subjects[rng.Intn(len(subjects))],
		verbs[rng.Intn(len(verbs))],
		objects[rng.Intn(len(objects))],
	)
}
