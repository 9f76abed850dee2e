package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/librescoot/interlink-service/pkg/gpio"
	"github.com/librescoot/interlink-service/pkg/interlink"
	"github.com/librescoot/interlink-service/pkg/redis"
	"github.com/librescoot/interlink-service/pkg/service"
	"github.com/librescoot/interlink-service/pkg/uart"
)

// Configuration flags
var (
	serialDevice = flag.String("serial", "/dev/ttymxc2", "Serial device path")
	baudRate     = flag.Int("baud", 115200, "Serial baud rate")
	redisAddr    = flag.String("redis-addr", "localhost:6379", "Redis server address")
	redisPass    = flag.String("redis-pass", "", "Redis password")
	redisDB      = flag.Int("redis-db", 0, "Redis database number")
	deChip       = flag.String("de-chip", "gpiochip0", "GPIO chip carrying the RS-485 direction line")
	dePin        = flag.Int("de-pin", -1, "RS-485 direction line offset (-1 for full duplex)")
	deActiveLow  = flag.Bool("de-active-low", false, "Direction line asserts transmit when low")
	turnaroundUs = flag.Int("turnaround-us", 0, "Turnaround delay in microseconds before releasing the bus")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting InterLink display service")
	log.Printf("Serial device: %s", *serialDevice)
	log.Printf("Baud rate: %d", *baudRate)
	log.Printf("Redis address: %s", *redisAddr)

	redisClient, err := redis.New(*redisAddr, *redisPass, *redisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Printf("Connected to Redis")

	stream, err := uart.Open(*serialDevice, *baudRate)
	if err != nil {
		log.Fatalf("Failed to open serial port: %v", err)
	}
	defer stream.Close()
	log.Printf("Opened serial port")

	link := interlink.New(stream)

	if *dePin >= 0 {
		line, err := gpio.NewDirectionLine(*deChip, *dePin, !*deActiveLow)
		if err != nil {
			log.Fatalf("Failed to configure direction line: %v", err)
		}
		defer line.Close()
		link.SetDirectionLine(line, time.Duration(*turnaroundUs)*time.Microsecond)
		log.Printf("Direction line on %s:%d (turnaround %d us)", *deChip, *dePin, *turnaroundUs)
	}

	svc := service.New(redisClient, link)

	go svc.Run()
	go svc.WatchRedisCommands()
	svc.SubscribeToRedisChannels()
	log.Printf("Subscribed to Redis channels")

	// Bring the display up and let it know we are alive.
	svc.SendPower(service.PowerInstructionOn)
	svc.SendInitComplete()
	log.Printf("Sent display wake-up sequence")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	svc.Stop()
	log.Printf("Shutting down...")
}
