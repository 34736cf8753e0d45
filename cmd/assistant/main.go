// Command assistant runs the Super Muslim Assistant backend: the Telegram
// bot, the HTTP API and the background workers.
package main

import "github.com/PDUUR/Super-Muslim-Assistant/cmd/assistant/root"

func main() {
	root.Execute()
}
