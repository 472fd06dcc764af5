package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/openmarket/marketd"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name: "marketd",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "mysql", Value: "root@tcp(127.0.0.1:3306)/marketd?charset=utf8mb4&parseTime=True&loc=Local", Usage: "mysql dsn", EnvVars: []string{"MYSQL"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite dir path", EnvVars: []string{"SQLITE_DIR"}},
			&cli.BoolFlag{Name: "use_sqlite", Value: false, Usage: "use sqlite instead of mysql", EnvVars: []string{"USE_SQLITE"}},
			&cli.StringFlag{Name: "kafka", Value: "", Usage: "kafka uri, empty disables event publishing", EnvVars: []string{"KAFKA"}},
			&cli.StringFlag{Name: "owner", Usage: "supervising identity address", Required: true, EnvVars: []string{"OWNER"}},
			&cli.StringFlag{Name: "address", Usage: "marketplace identity address", Required: true, EnvVars: []string{"ADDRESS"}},
			&cli.StringFlag{Name: "port", Value: ":8080", EnvVars: []string{"PORT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if !common.IsHexAddress(c.String("owner")) || !common.IsHexAddress(c.String("address")) {
		return cli.Exit("owner and address must be hex addresses", 1)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	m := marketd.New(
		c.String("db_dir"), c.String("mysql"), c.String("sqlite_dir"), c.Bool("use_sqlite"),
		c.String("kafka"),
		common.HexToAddress(c.String("owner")), common.HexToAddress(c.String("address")),
	)
	m.Run(c.String("port"))

	<-signals
	m.Close()

	return nil
}
