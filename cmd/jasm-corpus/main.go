package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/retroenv/retrogolib/log"

	"github.com/sansecio/jasm/cmd/internal"
	"github.com/sansecio/jasm/disasm"
	"github.com/sansecio/jasm/scanner"
)

type namedRule struct {
	name string
	rule *scanner.Rule
}

var (
	yaraFile     = flag.String("yara", "", "only scan files matching this YARA rule file (needs -tags yara)")
	dsn          = flag.String("dsn", "", "MySQL DSN to record detections in, e.g. root:root@tcp(127.0.0.1:3306)/jasm")
	disassembler = flag.String("disassembler", disasm.KindNative, "native, objdump or listing")
	timeout      = flag.Duration("timeout", 30*time.Second, "regex timeout per file and pattern")
	debug        = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()
	logger := internal.CreateLogger(*debug, false)

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: jasm-corpus [options] <pattern dir> <corpus dir>\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	rules, err := loadRules(logger, flag.Arg(0))
	if err != nil {
		logger.Fatal("Loading patterns failed: " + err.Error())
	}
	logger.Info("Compiled patterns", log.Int("count", len(rules)))

	var gate *internal.YaraGate
	if *yaraFile != "" {
		if gate, err = internal.NewYaraGate(*yaraFile); err != nil {
			logger.Fatal("Compiling YARA rules failed: " + err.Error())
		}
	}

	var store *detectionStore
	if *dsn != "" {
		if store, err = openStore(*dsn); err != nil {
			logger.Fatal("Connecting to MySQL failed: " + err.Error())
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	hits := internal.Tally{}
	timeouts := internal.Tally{}
	var scanned, skipped int

	err = filepath.WalkDir(flag.Arg(1), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Error("Walking corpus", log.Err(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if gate != nil {
			if ok, err := gate.Allow(path); err != nil || !ok {
				skipped++
				return nil
			}
		}
		scanned++

		for _, nr := range rules {
			producer, err := disasm.New(*disassembler, nr.rule.Config())
			if err != nil {
				return err
			}
			res, err := nr.rule.Match(ctx, producer, path, scanner.ScanOptions{
				Mode:    scanner.AllFinds,
				Return:  scanner.ReturnAddrs,
				Timeout: *timeout,
			})
			switch {
			case errors.Is(err, scanner.ErrTimeout):
				timeouts[nr.name]++
			case errors.Is(err, context.Canceled):
				return err
			case err != nil:
				logger.Error("Scanning", log.String("file", path), log.String("pattern", nr.name), log.Err(err))
				continue
			}
			if !res.Matched {
				continue
			}
			hits[nr.name]++
			fmt.Printf("%s\t%s\t%s\n", path, nr.name, strings.Join(res.Addrs, ","))
			if store != nil {
				if err := store.Record(ctx, path, nr.name, res.Addrs); err != nil {
					logger.Error("Recording detection", log.Err(err))
				}
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Walking corpus failed: " + err.Error())
	}

	logger.Info("Done",
		log.Int("scanned", scanned),
		log.Int("skipped", skipped),
		log.Int("detections", hits.Total()),
		log.Int("timeouts", timeouts.Total()))
	for _, name := range hits.Sorted() {
		fmt.Fprintf(os.Stderr, "%6d  %s\n", hits[name], name)
	}
	for _, name := range timeouts.Sorted() {
		fmt.Fprintf(os.Stderr, "%6d  %s (timeout)\n", timeouts[name], name)
	}
}

// loadRules compiles every pattern file in dir. Files under dir/macros are
// treated as shared macro files.
func loadRules(logger *log.Logger, dir string) ([]namedRule, error) {
	macroFiles, err := filepath.Glob(filepath.Join(dir, "macros", "*.yaml"))
	if err != nil {
		return nil, err
	}
	patterns, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	var rules []namedRule
	for _, p := range patterns {
		rule, err := internal.LoadRule(logger, p, macroFiles, scanner.CompileOptions{})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		rules = append(rules, namedRule{name: name, rule: rule})
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("no pattern files in %s", dir)
	}
	return rules, nil
}

type detectionStore struct {
	db *sql.DB
}

func openStore(dsn string) (*detectionStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS detections (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		path VARCHAR(1024) NOT NULL,
		pattern VARCHAR(255) NOT NULL,
		addrs TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &detectionStore{db: db}, nil
}

func (s *detectionStore) Record(ctx context.Context, path, pattern string, addrs []string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO detections (path, pattern, addrs) VALUES (?, ?, ?)`,
		path, pattern, strings.Join(addrs, ","))
	return err
}

func (s *detectionStore) Close() error {
	return s.db.Close()
}
