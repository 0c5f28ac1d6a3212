// Command taskrtdemo starts a Node, registers one sample action and one
// ordered queue, drives a short workload through them, and prints a
// one-line summary. It stands in for a real embedding application the way
// so-http10-demo's cmd/server stood in for a real HTTP client.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/embb-go/taskrt/internal/metrics"
	"github.com/embb-go/taskrt/sched"
)

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	node, err := sched.Init(
		sched.WithMaxTasks(getenvInt("TASKRT_MAX_TASKS", 4096)),
		sched.WithMaxActions(getenvInt("TASKRT_MAX_ACTIONS", 64)),
		sched.WithPickMode(sched.ModeVHPF),
	)
	if err != nil {
		log.Fatalf("node init failed: %v", err)
	}
	defer func() {
		if err := node.Finalize(); err != nil {
			log.Printf("node finalize: %v", err)
		}
	}()

	metricsAddr := os.Getenv("TASKRT_METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	go func() {
		if err := metrics.ListenAndServe(metricsAddr); err != nil {
			log.Printf("metrics server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		_ = node.Finalize()
		os.Exit(0)
	}()

	sumAction, err := node.CreateAction(1, 1, sumWorkload, sched.ActionAttributes{})
	if err != nil {
		log.Fatalf("create action: %v", err)
	}

	queue, err := node.CreateQueue(sched.QueueAttributes{Ordered: true})
	if err != nil {
		log.Fatalf("create queue: %v", err)
	}
	if err := node.EnableQueue(queue); err != nil {
		log.Fatalf("enable queue: %v", err)
	}

	group, err := node.CreateGroup()
	if err != nil {
		log.Fatalf("create group: %v", err)
	}

	const fanOut = 16
	for i := 0; i < fanOut; i++ {
		if _, err := node.EnqueueTask(sumAction, queue, []byte{byte(i)}, sched.TaskAttributes{}, group); err != nil {
			log.Printf("enqueue task %d: %v", i, err)
		}
	}

	g, err := node.GetGroup(group)
	if err != nil {
		log.Fatalf("get group: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.WaitAll(ctx); err != nil {
		log.Printf("group wait: %v", err)
	}

	info := node.GetInfo()
	fmt.Printf("node %s ran %d tasks across %d workers\n", info.ID, fanOut, info.NumWorkers)
}

func sumWorkload(ctx *sched.TaskContext, args, result []byte) {
	total := 0
	for _, b := range args {
		total += int(b)
	}
	_ = ctx
	_ = result
	time.Sleep(time.Millisecond)
}
