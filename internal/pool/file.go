package pool

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aryanox/ipalchemist/internal/model"
)

// fetchFile reads a local text source line by line.
//
// Format: blank lines and lines starting with '#' are skipped. A line
// starting with '{' is decoded as one structured JSON record. Anything
// else is split on ':' into host:port[:protocol], with the protocol
// defaulting to http. Malformed lines are skipped, never fatal; a file
// that cannot be opened is a fetch error.
func (m *Manager) fetchFile(path string) (model.Pool, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided source path is intentional
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	pool := make(model.Pool, 0)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var record model.ProxyRecord
		var ok bool
		if strings.HasPrefix(line, "{") {
			record, ok = parseStructuredLine(line)
		} else {
			record, ok = parsePlainLine(line)
		}
		if !ok {
			m.logger.Debug("skipping malformed proxy line", "path", path, "line", lineNo)
			continue
		}
		pool = append(pool, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return pool, nil
}

// parseStructuredLine decodes one JSON record. The record must carry a
// host, a port, and, when present, a supported protocol.
func parseStructuredLine(line string) (model.ProxyRecord, bool) {
	var record model.ProxyRecord
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return model.ProxyRecord{}, false
	}
	if record.Protocol == "" {
		record.Protocol = model.ProtocolHTTP
	}
	if record.Validate() != nil {
		return model.ProxyRecord{}, false
	}
	return record, true
}

// parsePlainLine splits host:port[:protocol].
func parsePlainLine(line string) (model.ProxyRecord, bool) {
	parts := strings.Split(line, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return model.ProxyRecord{}, false
	}

	host := strings.TrimSpace(parts[0])
	port, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 16)
	if err != nil || port == 0 {
		return model.ProxyRecord{}, false
	}

	protocol := model.ProtocolHTTP
	if len(parts) == 3 {
		parsed, err := model.ParseProtocol(strings.TrimSpace(parts[2]))
		if err != nil {
			return model.ProxyRecord{}, false
		}
		protocol = parsed
	}

	record := model.ProxyRecord{Host: host, Port: uint16(port), Protocol: protocol}
	if record.Validate() != nil {
		return model.ProxyRecord{}, false
	}
	return record, true
}
