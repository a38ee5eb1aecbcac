// Command keygen prints restock lines ready to paste into the admin panel or
// POST to /api/v1/admin/keys.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"infinite-experiment/keydrop/internal/common"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

func main() {
	count := pflag.IntP("count", "n", 10, "number of keys to generate")
	duration := pflag.StringP("duration", "d", "30d", "validity attached to each key (e.g. 24h, 7d)")
	product := pflag.StringP("product", "p", "", "product name; omitted when empty")
	link := pflag.StringP("link", "l", "", "product link; requires --product")
	prefix := pflag.String("prefix", "KEY-", "prefix for each generated token")
	pflag.Parse()

	if err := run(os.Stdout, *count, *duration, *product, *link, *prefix); err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}
}

func run(w io.Writer, count int, duration, product, link, prefix string) error {
	lines, err := generateLines(count, duration, product, link, prefix)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

// generateLines builds count restock lines sharing one duration, product and link
func generateLines(count int, duration, product, link, prefix string) ([]string, error) {
	if count < 1 {
		return nil, fmt.Errorf("--count must be positive, got %d", count)
	}
	if _, err := common.ParseKeyDuration(duration); err != nil {
		return nil, err
	}
	if link != "" && product == "" {
		return nil, fmt.Errorf("--link requires --product")
	}

	lines := make([]string, 0, count)
	for i := 0; i < count; i++ {
		fields := []string{prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16]), duration}
		if product != "" {
			fields = append(fields, product)
		}
		if link != "" {
			fields = append(fields, link)
		}
		lines = append(lines, strings.Join(fields, " | "))
	}
	return lines, nil
}
