// @title           Research API
// @version         1.0
// @description     Document RAG chat, semantic search and deep web research behind an asynchronous job API.
// @termsOfService  http://swagger.io/terms/

// @contact.name    akolanti
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	root := &cobra.Command{
		Use:   "research-api",
		Short: "RAG chat, document search and deep research API",
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config.yaml)")
	root.AddCommand(serveCMD(&cfgPath), migrateCMD(&cfgPath))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
