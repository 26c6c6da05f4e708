package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/danmuck/nixrm/internal/logging"
	"github.com/danmuck/nixrm/internal/mirror"
	"github.com/danmuck/nixrm/internal/nix"
	"github.com/danmuck/nixrm/internal/remote"
	"github.com/danmuck/nixrm/internal/store"
	"github.com/danmuck/nixrm/internal/tools"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = pflag.String("config", "", "path to TOML config file")
		command    = pflag.StringP("command", "c", "", "command to run on the remote host after installation")
		sshUser    = pflag.String("user", "", "remote user (default: from destination or local user)")
		sshPort    = pflag.String("port", "", "remote ssh port")
		sshKey     = pflag.String("key", "", "path to ssh private key")
		knownHosts = pflag.String("known-hosts", "", "path to known_hosts file")
		insecure   = pflag.Bool("insecure", false, "skip host key verification")
		storeRoot  = pflag.String("store-root", "", "local store root")
		mirrorRoot = pflag.String("mirror-root", "", "remote mirror root")
		logLevel   = pflag.String("log-level", "", "log level (trace|debug|info|warn|error)")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: nixrm [flags] <installable> <destination>\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 2 {
		pflag.Usage()
		return 2
	}
	installable := pflag.Arg(0)
	destination := pflag.Arg(1)

	logging.ConfigureRuntime()

	cfg := defaultRunConfig()
	if *configPath != "" {
		loaded, err := loadRunConfig(*configPath)
		if err != nil {
			log.Error().Err(err).Msg("config")
			return 1
		}
		cfg = loaded
	}
	if pflag.CommandLine.Changed("user") {
		cfg.SSH.User = *sshUser
	}
	if pflag.CommandLine.Changed("port") {
		cfg.SSH.Port = *sshPort
	}
	if pflag.CommandLine.Changed("key") {
		cfg.SSH.KeyPath = *sshKey
	}
	if pflag.CommandLine.Changed("known-hosts") {
		cfg.SSH.KnownHostsPath = *knownHosts
	}
	if pflag.CommandLine.Changed("insecure") {
		cfg.SSH.InsecureSkipHostKeyChecking = *insecure
	}
	if pflag.CommandLine.Changed("store-root") {
		cfg.StoreRoot = *storeRoot
	}
	if pflag.CommandLine.Changed("mirror-root") {
		cfg.MirrorRoot = *mirrorRoot
	}
	if pflag.CommandLine.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if cfg.LogLevel != "" && !logging.SetLevel(cfg.LogLevel) {
		log.Error().Str("level", cfg.LogLevel).Msg("unknown log level")
		return 1
	}

	if err := cfg.SSH.ParseDestination(destination); err != nil {
		log.Error().Err(err).Msg("destination")
		return 1
	}

	remap, err := store.NewRemapper(cfg.StoreRoot, cfg.MirrorRoot)
	if err != nil {
		log.Error().Err(err).Msg("roots")
		return 1
	}

	resolver := nix.NewResolver(tools.ExecRunner{})
	if err := resolver.Build(installable); err != nil {
		log.Error().Err(err).Msg("build")
		return 1
	}
	paths, err := resolver.Closure(installable)
	if err != nil {
		log.Error().Err(err).Msg("closure")
		return 1
	}
	primary, err := resolver.Primary(installable)
	if err != nil {
		log.Error().Err(err).Msg("primary path")
		return 1
	}

	closure, err := store.NewClosure(remap, paths)
	if err != nil {
		log.Error().Err(err).Msg("closure paths")
		return 1
	}
	log.Info().Int("paths", closure.Len()).Msg("closure loaded")

	log.Info().Str("host", cfg.SSH.Host).Msg("initializing ssh")
	client, err := remote.Dial(cfg.SSH)
	if err != nil {
		log.Error().Err(err).Msg("ssh")
		return 1
	}
	defer client.Close()

	if _, stderr, code, err := client.Run("mkdir", "-p", cfg.MirrorRoot); err != nil {
		log.Error().Int32("exit", code).Bytes("stderr", stderr).Msg("failed to create mirror root")
		return 1
	}

	files, err := client.SFTP()
	if err != nil {
		log.Error().Err(err).Msg("sftp")
		return 1
	}
	defer files.Close()

	ledger := mirror.NewLedger(files, remap.MirrorRoot())
	if err := ledger.Init(); err != nil {
		log.Error().Err(err).Msg("ledger")
		return 1
	}

	replicator := mirror.NewReplicator(files, client, remap, store.NewRewriter(remap, closure))
	orchestrator := mirror.NewOrchestrator(closure, ledger, replicator)
	if err := orchestrator.Run(); err != nil {
		log.Error().Err(err).Msg("mirroring failed")
		return 1
	}
	log.Info().Msg("done")

	if *command == "" {
		return 0
	}

	remappedPrimary, err := remap.Remap(primary)
	if err != nil {
		log.Error().Err(err).Msg("primary path remap")
		return 1
	}
	launch := fmt.Sprintf(`export PATH="%s/bin:$PATH"; %s`, remappedPrimary, *command)
	status, err := client.Exec(launch)
	if err != nil {
		log.Error().Err(err).Msg("remote command")
		return 1
	}
	return status
}
