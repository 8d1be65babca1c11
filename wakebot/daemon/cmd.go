package daemon

import (
	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "daemon",
	Short: "Wakebot agent",
	Long:  "Wakebot agent, serving /add /remove /list /wake to the operator over Telegram or MQTT",
	Args:  cobra.NoArgs,
}

func init() {
	f := Cmd.PersistentFlags()
	f.String("operator", "", "sender id of the only authorized operator")
	f.String("transport", "", "chat transport: telegram or mqtt")
	f.String("telegram-token", "", "Telegram bot token")
	f.String("mqtt-broker", "", "MQTT broker (URL, host[:port], \"me\"), mDNS lookup when empty")
	f.String("mqtt-topic", "", "MQTT topic prefix")
	f.Bool("mqtt-embedded", false, "run an embedded MQTT broker")
	f.String("storage-backend", "", "host list storage: file or sqlite")
	f.String("storage-path", "", "host list directory (file) or database (sqlite)")
	f.String("wol-broadcast", "", "broadcast address for magic packets")
}
