package provision

import (
	"bytes"
	"text/template"

	"github.com/streamlinelabs/streamline-installer/internal/config"
)

// DefaultKafkaPort is where the server accepts Kafka clients unless told otherwise.
const DefaultKafkaPort = 9092

var caveatsTemplate = template.Must(template.New("caveats").Parse(`Streamline is installed in {{ .BinDir }}.

Start the server:
  {{ .BinDir }}/streamline --data-dir {{ .DataDir }}

Try it without persistence:
  {{ .BinDir }}/streamline --playground

Run it as a background service ({{ .Label }}):
  streamline-installer service install

Produce and consume from the command line:
  {{ .BinDir }}/streamline-cli topics list

Logs go to {{ .LogPath }}.
Kafka clients connect to localhost:{{ .Port }}.
`))

// Caveats returns quick-start guidance for a finished install.
func Caveats(cfg *config.Config) string {
	layout := cfg.Layout()

	var buf bytes.Buffer

	//nolint:errcheck // Fixed template over plain strings.
	_ = caveatsTemplate.Execute(&buf, struct {
		config.Layout

		Label string
		Port  int
	}{Layout: layout, Label: cfg.Service.Label, Port: DefaultKafkaPort})

	return buf.String()
}
