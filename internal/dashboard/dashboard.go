// Package dashboard provides live monitoring for a running screening.
// It serves a web page showing the state of every planned run, a JSON
// progress endpoint, and WebSocket streaming so the page updates while
// the hyperparameter search works through its candidates.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"credit-screener/internal/pipeline"
)

// StatusSource reports the state of every planned run. The orchestrator
// satisfies this.
type StatusSource interface {
	Status() []pipeline.RunStatus
}

// ProgressSnapshot is one point-in-time view of the screening, as sent
// to dashboard clients.
type ProgressSnapshot struct {
	Timestamp time.Time            `json:"timestamp"`
	Runs      []pipeline.RunStatus `json:"runs"`
	Done      int                  `json:"done"`
	Total     int                  `json:"total"`
}

// Dashboard serves the progress page with WebSocket streaming for live
// updates while a screening is in flight.
type Dashboard struct {
	source           StatusSource             // Run status provider
	server           *http.Server             // HTTP server for the dashboard
	upgrader         websocket.Upgrader       // WebSocket upgrader for real-time updates
	clients          map[*websocket.Conn]bool // Connected WebSocket clients
	clientsMu        sync.RWMutex             // Mutex for client map access
	broadcastChannel chan ProgressSnapshot    // Channel for broadcasting snapshots
	stopChannel      chan struct{}            // Channel for shutdown signaling
	isRunning        bool                     // Whether the dashboard is running
	mu               sync.RWMutex             // Mutex for dashboard state
}

// New creates a dashboard serving on the specified port.
func New(source StatusSource, port int) *Dashboard {
	d := &Dashboard{
		source:           source,
		upgrader:         websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:          make(map[*websocket.Conn]bool),
		broadcastChannel: make(chan ProgressSnapshot, 100),
		stopChannel:      make(chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", d.handleIndex).Methods("GET")
	r.HandleFunc("/api/progress", d.handleProgressAPI).Methods("GET")
	r.HandleFunc("/ws", d.handleWebSocket).Methods("GET")

	d.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return d
}

// Start starts the dashboard server and its broadcast loops.
func (d *Dashboard) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dashboard is already running")
	}

	go d.snapshotCollector()
	go d.clientBroadcaster()

	go func() {
		log.Info().
			Str("address", d.server.Addr).
			Msg("Starting progress dashboard server")

		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Progress dashboard server failed")
		}
	}()

	d.isRunning = true
	return nil
}

// Stop stops the dashboard server and disconnects all clients.
func (d *Dashboard) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isRunning {
		return nil
	}

	close(d.stopChannel)

	d.clientsMu.Lock()
	for client := range d.clients {
		client.Close()
	}
	d.clients = make(map[*websocket.Conn]bool)
	d.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown progress dashboard server")
		return err
	}

	d.isRunning = false
	log.Info().Msg("Progress dashboard stopped")
	return nil
}

// snapshotCollector samples run status every second and queues it for
// broadcast.
func (d *Dashboard) snapshotCollector() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snapshot := d.collectSnapshot()
			select {
			case d.broadcastChannel <- snapshot:
			default:
				// Channel full, skip this update
			}
		case <-d.stopChannel:
			return
		}
	}
}

// clientBroadcaster pushes queued snapshots to all connected clients.
func (d *Dashboard) clientBroadcaster() {
	for {
		select {
		case snapshot := <-d.broadcastChannel:
			d.broadcastToClients(snapshot)
		case <-d.stopChannel:
			return
		}
	}
}

func (d *Dashboard) collectSnapshot() ProgressSnapshot {
	runs := d.source.Status()
	done := 0
	for _, r := range runs {
		if r.State == pipeline.StateDone || r.State == pipeline.StateAborted {
			done++
		}
	}
	return ProgressSnapshot{
		Timestamp: time.Now(),
		Runs:      runs,
		Done:      done,
		Total:     len(runs),
	}
}

func (d *Dashboard) broadcastToClients(snapshot ProgressSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal progress snapshot")
		return
	}

	var dead []*websocket.Conn
	d.clientsMu.RLock()
	for client := range d.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Msg("Failed to send message to WebSocket client")
			dead = append(dead, client)
		}
	}
	d.clientsMu.RUnlock()

	if len(dead) == 0 {
		return
	}
	d.clientsMu.Lock()
	for _, client := range dead {
		client.Close()
		delete(d.clients, client)
	}
	d.clientsMu.Unlock()
}

// handleIndex serves the dashboard HTML page.
func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <title>Credit Screener - Progress</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 1000px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 20px; border-radius: 10px; margin-bottom: 20px; }
        .header h1 { margin: 0; font-size: 2em; text-align: center; }
        .status-bar { display: flex; justify-content: space-between; background: white; padding: 15px; border-radius: 8px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); font-weight: bold; }
        .runs-table { width: 100%; border-collapse: collapse; background: white; border-radius: 10px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); }
        .runs-table th, .runs-table td { text-align: left; padding: 12px; border-bottom: 1px solid #eee; }
        .runs-table th { background-color: #f8f9fa; }
        .state { padding: 2px 8px; border-radius: 4px; font-size: 0.85em; font-weight: bold; color: white; }
        .state-pending { background-color: #6c757d; }
        .state-searching { background-color: #ffc107; color: #333; }
        .state-done { background-color: #28a745; }
        .state-aborted { background-color: #dc3545; }
        .progress-bar { width: 140px; height: 14px; background-color: #eee; border-radius: 7px; overflow: hidden; }
        .progress-fill { height: 100%; background-color: #667eea; transition: width 0.3s ease; }
        .profit-positive { color: #28a745; font-weight: bold; }
        .profit-negative { color: #dc3545; font-weight: bold; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Credit Screening Progress</h1>
        </div>

        <div class="status-bar">
            <span id="overall">Runs: 0 / 0</span>
            <span id="last-update">Last Updated: --</span>
        </div>

        <table class="runs-table">
            <thead>
                <tr>
                    <th>Family</th>
                    <th>Variant</th>
                    <th>State</th>
                    <th>Candidates</th>
                    <th>CV Accuracy</th>
                    <th>Test Accuracy</th>
                    <th>Net Profit</th>
                </tr>
            </thead>
            <tbody id="runs-body">
                <tr><td colspan="7" style="text-align: center; color: #666;">Waiting for data...</td></tr>
            </tbody>
        </table>
    </div>

    <script>
        const ws = new WebSocket('ws://' + location.host + '/ws');

        ws.onmessage = function(event) {
            update(JSON.parse(event.data));
        };

        ws.onclose = function() {
            setTimeout(() => location.reload(), 5000);
        };

        function update(data) {
            document.getElementById('last-update').textContent =
                'Last Updated: ' + new Date(data.timestamp).toLocaleTimeString();
            document.getElementById('overall').textContent =
                'Runs: ' + data.done + ' / ' + data.total;

            const tbody = document.getElementById('runs-body');
            tbody.innerHTML = '';
            for (const run of data.runs) {
                const row = document.createElement('tr');
                const pct = run.candidates_total > 0
                    ? Math.round(run.candidates_done / run.candidates_total * 100) : 0;
                const profitClass = run.net_profit >= 0 ? 'profit-positive' : 'profit-negative';
                row.innerHTML =
                    '<td>' + run.family + '</td>' +
                    '<td>' + run.variant + '</td>' +
                    '<td><span class="state state-' + run.state + '">' + run.state.toUpperCase() + '</span></td>' +
                    '<td><div class="progress-bar"><div class="progress-fill" style="width:' + pct + '%"></div></div> ' +
                        run.candidates_done + '/' + run.candidates_total + '</td>' +
                    '<td>' + run.cv_accuracy.toFixed(4) + '</td>' +
                    '<td>' + run.test_accuracy.toFixed(4) + '</td>' +
                    '<td class="' + profitClass + '">' + run.net_profit.toFixed(2) + '</td>';
                tbody.appendChild(row);
            }
        }
    </script>
</body>
</html>
	`

	t, err := template.New("dashboard").Parse(tmpl)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	t.Execute(w, nil)
}

// handleProgressAPI serves the current snapshot as JSON.
func (d *Dashboard) handleProgressAPI(w http.ResponseWriter, r *http.Request) {
	snapshot := d.collectSnapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// handleWebSocket handles WebSocket connections for real-time updates.
func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	d.clientsMu.Lock()
	d.clients[conn] = true
	d.clientsMu.Unlock()

	// Send the current state immediately so new clients never wait for
	// the next tick.
	snapshot := d.collectSnapshot()
	if data, err := json.Marshal(snapshot); err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	d.clientsMu.Lock()
	delete(d.clients, conn)
	d.clientsMu.Unlock()
}
