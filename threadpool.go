package reactor

import "sync"

// serviceThread is a long-lived background loop registered outside the
// ordinary worker pool: Chrono and IOMultiplexer are both
// registered this way, as can user-defined background services.
type serviceThread struct {
	name string
	run  func()
	kill func()
}

// ThreadPool owns the worker goroutines that drain TaskScheduler's
// ready queue, the dedicated main-thread worker, and any registered
// service threads.
type ThreadPool struct {
	workers     int
	scheduler   *TaskScheduler
	statsStream *statsStream
	errLimit    *errorLogLimiter
	logger      *Logger

	wg       sync.WaitGroup
	services []serviceThread
	svcWG    sync.WaitGroup
}

// NewThreadPool constructs a pool with workers ordinary worker
// goroutines (not counting the main-thread worker, which the caller of
// RunMain supplies for free by blocking in it).
func NewThreadPool(workers int, scheduler *TaskScheduler, ss *statsStream, errLimit *errorLogLimiter, logger *Logger) *ThreadPool {
	if workers < 0 {
		workers = 0
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &ThreadPool{
		workers:     workers,
		scheduler:   scheduler,
		statsStream: ss,
		errLimit:    errLimit,
		logger:      logger,
	}
}

// RegisterService adds a dedicated background thread, started by Start
// and stopped by Shutdown, outside the ordinary worker pool, with its
// own run() and kill() callback. Must be called before Start.
func (p *ThreadPool) RegisterService(name string, run func(), kill func()) {
	p.services = append(p.services, serviceThread{name: name, run: run, kill: kill})
}

// Start spawns the ordinary worker goroutines and every registered
// service thread. It does not block; RunMain services the main-thread
// queue on the calling goroutine.
func (p *ThreadPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
	for _, svc := range p.services {
		svc := svc
		p.svcWG.Add(1)
		go func() {
			defer p.svcWG.Done()
			defer p.recoverService(svc.name)
			svc.run()
		}()
	}
}

func (p *ThreadPool) recoverService(name string) {
	if rec := recover(); rec != nil {
		p.logger.Crit().Str("service", name).Log("service thread panicked, not restarted")
	}
}

// RunMain services the dedicated main-thread queue on the calling
// goroutine until shutdown: the thread that invoked Start is the
// main worker.
func (p *ThreadPool) RunMain() {
	for {
		task, ok := p.scheduler.NextMain()
		if !ok {
			return
		}
		p.execute(task)
	}
}

func (p *ThreadPool) workerLoop() {
	defer p.wg.Done()
	for {
		task, ok := p.scheduler.Next()
		if !ok {
			return
		}
		p.execute(task)
	}
}

func (p *ThreadPool) execute(task *ReactionTask) {
	task.run(p.errLimit, p.logger)
	p.scheduler.Complete(task)
	p.statsStream.report(task.stats())
}

// Shutdown stops every service thread, shuts the scheduler down, then
// waits for the ordinary workers and service threads to return. It
// does not wait for RunMain, which returns on its own once it observes
// the scheduler's shutdown.
func (p *ThreadPool) Shutdown() {
	for _, svc := range p.services {
		if svc.kill != nil {
			svc.kill()
		}
	}
	p.scheduler.Shutdown()
	p.wg.Wait()
	p.svcWG.Wait()
}
