// Package keyfile parses the line-oriented credential and proxy files.
//
// The credential file is split into [SECTION] blocks, one per service, with
// colon-delimited data lines whose arity depends on the service. Blank
// lines and #-comments are skipped; malformed lines are logged and skipped
// without aborting the parse. A missing file degrades to an empty pool.
package keyfile

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/rickgao/crypto-factory/internal/keyring"
)

// section header → service name and window kind.
var sections = map[string]struct {
	service string
	window  keyring.Window
}{
	"BINANCE":        {"binance", keyring.WindowMinute},
	"DELTA_EXCHANGE": {"delta", keyring.WindowMinute},
	"FRED":           {"fred", keyring.WindowMinute},
	"ETHERSCAN":      {"etherscan", keyring.WindowDay},
	"ALPHAVANTAGE":   {"alphavantage", keyring.WindowDay},
	"COINALYZE":      {"coinalyze", keyring.WindowDay},
	"CRYPTOPANIC":    {"cryptopanic", keyring.WindowMonth},
	"COINGECKO":      {"coingecko", keyring.WindowMonth},
}

// ParseKeyFile reads credentials grouped per service. A missing file is not
// an error: collection proceeds with an empty pool and credentialed calls
// are skipped.
func ParseKeyFile(path string, logger *slog.Logger) (map[string][]keyring.Credential, error) {
	if logger == nil {
		logger = slog.Default()
	}

	creds := make(map[string][]keyring.Credential)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("credential file not found, starting with empty pool", "path", path)
			return creds, nil
		}
		return nil, fmt.Errorf("open credential file: %w", err)
	}
	defer f.Close()

	var current string
	lineNum := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.ToUpper(line[1 : len(line)-1])
			continue
		}

		sec, ok := sections[current]
		if !ok {
			logger.Warn("credential line outside known section, skipped",
				"line", lineNum,
				"section", current,
			)
			continue
		}

		cred, err := parseLine(sec.service, sec.window, line)
		if err != nil {
			logger.Warn("malformed credential line, skipped",
				"line", lineNum,
				"section", current,
				"error", err,
			)
			continue
		}
		creds[sec.service] = append(creds[sec.service], cred)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	for service, list := range creds {
		logger.Info("credentials loaded", "service", service, "keys", len(list))
	}
	return creds, nil
}

// parseLine parses one data line according to its service's arity.
func parseLine(service string, window keyring.Window, line string) (keyring.Credential, error) {
	parts := strings.Split(line, ":")

	cred := keyring.Credential{Service: service, Window: window}

	switch service {
	case "binance":
		// API_KEY:API_SECRET:LIMIT:TYPE
		if len(parts) < 4 {
			return cred, fmt.Errorf("want 4 fields, got %d", len(parts))
		}
		limit, err := strconv.Atoi(parts[2])
		if err != nil {
			return cred, fmt.Errorf("limit: %w", err)
		}
		cred.Key, cred.Secret, cred.Limit, cred.Kind = parts[0], parts[1], limit, parts[3]

	case "delta":
		// API_KEY:API_SECRET:LIMIT
		if len(parts) < 3 {
			return cred, fmt.Errorf("want 3 fields, got %d", len(parts))
		}
		limit, err := strconv.Atoi(parts[2])
		if err != nil {
			return cred, fmt.Errorf("limit: %w", err)
		}
		cred.Key, cred.Secret, cred.Limit = parts[0], parts[1], limit

	default:
		// KEY:LIMIT
		if len(parts) < 2 {
			return cred, fmt.Errorf("want 2 fields, got %d", len(parts))
		}
		limit, err := strconv.Atoi(parts[1])
		if err != nil {
			return cred, fmt.Errorf("limit: %w", err)
		}
		cred.Key, cred.Limit = parts[0], limit
	}

	if cred.Key == "" {
		return cred, fmt.Errorf("empty key")
	}
	if cred.Limit <= 0 {
		return cred, fmt.Errorf("limit must be positive, got %d", cred.Limit)
	}
	return cred, nil
}

// ParseProxyFile reads HOST:PORT:USERNAME:PASSWORD lines with the same
// skip-on-malformed policy as the credential file.
func ParseProxyFile(path string, logger *slog.Logger) ([]keyring.Proxy, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("proxy file not found, outbound calls go direct", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var proxies []keyring.Proxy
	lineNum := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ":")
		if len(parts) < 4 {
			logger.Warn("malformed proxy line, skipped", "line", lineNum)
			continue
		}
		port, err := strconv.Atoi(parts[1])
		if err != nil {
			logger.Warn("malformed proxy port, skipped", "line", lineNum, "error", err)
			continue
		}
		proxies = append(proxies, keyring.Proxy{
			Host:     parts[0],
			Port:     port,
			Username: parts[2],
			Password: parts[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy file: %w", err)
	}

	logger.Info("proxies loaded", "count", len(proxies))
	return proxies, nil
}
