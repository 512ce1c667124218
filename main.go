/*
knocker runs a child application and acts like a proxy to it.

It expects to run a child application and proxy all packets to the port the
child is listening on. After a time without any packets (the idle timeout),
the child's whole process group is terminated, SIGTERM first and SIGKILL
after a grace period. The next client that shows up gets the child spawned
again. A scale-to-zero pattern for a single backing process.

Make sure that terminating the command also terminates the child
application. If running it through Docker, for example, do not pass -d.
*/
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/knockware/knocker/child"
	"github.com/knockware/knocker/proxy"
	"github.com/knockware/knocker/utils"
)

var (
	listenAddr   string
	destAddr     string
	idleTimeout  time.Duration
	gracePeriod  time.Duration
	holdPackets  bool
	useUDP       bool
	childCommand string

	configFileName string
	logFileName    string

	cmdPrintVer      bool
	interactive_mode bool
	startPProf       bool
	startMProf       bool
)

func init() {
	flag.StringVar(&listenAddr, "listen", "", "address for the proxy to listen on")
	flag.StringVar(&destAddr, "dest", "", "destination address for the proxy, where the child listens")
	flag.DurationVar(&idleTimeout, "idle", time.Hour, "time between received packets to consider the child idle")
	flag.DurationVar(&gracePeriod, "grace", 10*time.Second, "time between terminating the idle child (SIGTERM) and killing it (SIGKILL)")
	flag.BoolVar(&holdPackets, "hold", false, "(experimental, tcp only) hold inbound connections while the child is down instead of dropping them")
	flag.BoolVar(&useUDP, "u", false, "use UDP instead of the default TCP for the proxy")
	flag.StringVar(&childCommand, "cmd", "", "command to run as a child; it must listen on the dest address and terminate with its process group")

	flag.StringVar(&configFileName, "c", "", "config file name")
	flag.StringVar(&logFileName, "lf", "", "log file name; if given, logs are also written there, with rotation")

	flag.BoolVar(&cmdPrintVer, "v", false, "print the version string then exit")
	flag.BoolVar(&interactive_mode, "i", false, "generate a config file interactively")
	flag.BoolVar(&startPProf, "pp", false, "pprof")
	flag.BoolVar(&startMProf, "mp", false, "memory pprof")
}

func main() {
	os.Exit(mainFunc())
}

func mainFunc() (result int) {
	flag.Parse()

	if cmdPrintVer {
		printVersion()
		return
	}

	if interactive_mode {
		runCli()
		return
	}

	if configFileName != "" {
		conf, err := loadConfigFile(configFileName)
		if err != nil {
			log.Printf("%v\n", err)
			return -1
		}
		if err := applyConfigFile(conf); err != nil {
			log.Printf("%v\n", err)
			return -1
		}
	}

	if listenAddr == "" || destAddr == "" || childCommand == "" {
		log.Printf("need -listen, -dest and -cmd (or a config file giving them), see -h\n")
		return -1
	}

	utils.InitLog(logFileName)

	if startPProf {
		p := profile.Start(profile.CPUProfile, profile.NoShutdownHook)
		defer p.Stop()
	}
	if startMProf {
		p := profile.Start(profile.MemProfile, profile.MemProfileRate(1), profile.NoShutdownHook)
		defer p.Stop()
	}

	utils.ZapLogger.Info("wait for connection...",
		zap.String("listen", listenAddr),
		zap.String("dest", destAddr),
		zap.Bool("udp", useUDP),
	)

	sender, watch := proxy.NewEventPipe()

	var gate *proxy.ReadyGate
	if holdPackets && !useUDP {
		gate = proxy.NewReadyGate()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// close signal: stop supervising, which tears the children down before
	// the process goes away
	go func() {
		osSignals := make(chan os.Signal, 1)
		signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
		<-osSignals
		utils.ZapLogger.Info("program got close signal")
		cancel()
	}()

	supervisor := child.NewSupervisor(childCommand, idleTimeout, gracePeriod, watch, gate)
	supervisorResult := make(chan error, 1)
	go func() {
		supervisorResult <- supervisor.Run(ctx)
	}()

	utils.ZapLogger.Info("proxy starting...")

	proxyResult := make(chan error, 1)
	go func() {
		if useUDP {
			proxyResult <- proxy.NewUDPProxy(destAddr, listenAddr, sender).Start()
		} else {
			proxyResult <- proxy.NewTCPProxy(destAddr, listenAddr, sender).Start(gate)
		}
	}()

	select {
	case err := <-proxyResult:
		if err != nil {
			utils.ZapLogger.Error("proxy failed", zap.Error(err))
			cancel()
			<-supervisorResult //children torn down
			return -1
		}
	case err := <-supervisorResult:
		if err != nil && err != context.Canceled {
			utils.ZapLogger.Error("supervision failed", zap.Error(err))
			return -1
		}
	}

	utils.ZapLogger.Info("proxy exiting...")
	return
}
