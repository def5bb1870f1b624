package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/blumenshine/rankwatch/pkg/api"
	"github.com/blumenshine/rankwatch/pkg/keywords"
	"github.com/blumenshine/rankwatch/pkg/tracker"
)

func main() {
	// Usage: go run *.go -api "http://localhost:8000/api" -add "keyword one, keyword two"

	apiFlag := flag.String("api", api.DEFAULT_BASE_URL, "Tracker backend base URL")
	addFlag := flag.String("add", "", "Keywords to add, separated by commas or newlines")

	// Parse the command-line flags
	flag.Parse()

	client, err := api.NewClient(api.Config{BaseURL: *apiFlag, Timeout: 10 * time.Second})
	if err != nil {
		fmt.Println(err)
		return
	}

	t := tracker.New(tracker.Config{Gateway: client})
	ctx := context.Background()

	if err := t.Refresh(ctx); err != nil {
		fmt.Println("Failed to load keywords:", err)
		return
	}

	if *addFlag != "" {
		res, err := t.AddBulk(ctx, *addFlag)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(res.Message())
	}

	for _, r := range keywords.SortedByRankThenName(t.Rows()) {
		pos := "pending"
		if r.Position != nil {
			pos = fmt.Sprint(*r.Position)
		}
		fmt.Println(r.Keyword, pos)
	}
}
