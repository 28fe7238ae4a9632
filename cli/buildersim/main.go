package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"soltoken"
	"soltoken/buildersim"
)

var log = soltoken.Log()

func main() {
	var (
		listen   string
		program  string
		mint     string
		decimals uint
	)

	flag.StringVar(&listen, "listen", "localhost:5000", "host:port for the builder simulator")
	flag.StringVar(&program, "program", "", "base58 program id (random when empty)")
	flag.StringVar(&mint, "mint", "", "base58 mint pubkey (random when empty)")
	flag.UintVar(&decimals, "decimals", 6, "mint decimal precision")
	flag.Parse()

	programID, err := resolveKey(program)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	mintPubkey, err := resolveKey(mint)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	log.Info().Msgf("program id: %s", programID)
	log.Info().Msgf("mint pubkey: %s", mintPubkey)

	server := buildersim.New(buildersim.Options{
		ProgramID: programID,
		Mint:      mintPubkey,
		Decimals:  uint8(decimals),
	})

	go func() {
		if err := server.Listen(listen); err != nil {
			log.Error().Msgf("%+v", errors.WithStack(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Info().Msg("caught interrupt/terminate signal, attempting graceful shutdown...")

	if err := server.Shutdown(); err != nil {
		log.Fatal().Msgf("%+v", errors.WithStack(err))
	}

	log.Info().Msg("graceful shutdown complete")
}

func resolveKey(encoded string) (pub soltoken.PublicKey, err error) {
	if encoded != "" {
		return soltoken.ParsePublicKey(encoded)
	}

	keypair, err := soltoken.NewKeypair()
	if err != nil {
		return
	}
	pub = keypair.PublicKey()
	return
}
