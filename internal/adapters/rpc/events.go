package rpc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alejandrodnm/critterbot/internal/domain"
)

// ParseEvents extrae los eventos del programa de los logs crudos de una
// transacción. Las líneas que no son eventos del programa se ignoran; una
// línea de evento malformada sí es un error, porque significa que estamos
// parseando una versión distinta del programa.
func ParseEvents(logs []string) ([]domain.Event, error) {
	var events []domain.Event
	for _, line := range logs {
		payload, ok := strings.CutPrefix(line, eventLogPrefix)
		if !ok {
			continue
		}
		var ev domain.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("rpc.ParseEvents: malformed event log %q: %w", line, err)
		}
		if ev.Kind == "" {
			return nil, fmt.Errorf("rpc.ParseEvents: event log without kind: %q", line)
		}
		events = append(events, ev)
	}
	return events, nil
}

// FormatEventLog arma la línea de log de un evento, el inverso de
// ParseEvents. Lo usan los fakes de tests para fabricar logs realistas.
func FormatEventLog(ev domain.Event) string {
	payload, _ := json.Marshal(ev)
	return eventLogPrefix + string(payload)
}
