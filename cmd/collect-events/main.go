// Command collect-events summarises the task request observability events
// found in the site's JSON logs read from stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		outPath     string
		eventName   string
		eventDomain string
	)
	flag.StringVar(&outPath, "out", "", "path to write aggregated metrics JSON")
	flag.StringVar(&eventName, "event-name", tasksEventName, "observability event name to collect")
	flag.StringVar(&eventDomain, "event-domain", tasksEventDomain, "observability event domain to match")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "-out is required")
		os.Exit(2)
	}

	collector := newCollector(eventName, eventDomain)
	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadString('\n')
		if len(line) != 0 {
			collector.ingest(line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("read logs: %v", err)
		}
	}

	summary := collector.summary()
	data, err := sonic.ConfigStd.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Fatalf("encode summary: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("write summary: %v", err)
	}

	fmt.Println(summary.ShortString())
}
