package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// -------------------- 运行时监控 --------------------

type SystemStats struct {
	Timestamp   time.Time
	MemoryUsage float64
	MemoryTotal uint64
	MemoryUsed  uint64
	Goroutines  int
}

type Monitor struct {
	stats    []SystemStats
	interval time.Duration
	stopChan chan struct{}
}

func NewMonitor(interval time.Duration) *Monitor {
	return &Monitor{
		stats:    make([]SystemStats, 0, 512),
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (m *Monitor) collectStats() SystemStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats := SystemStats{
		Timestamp:   time.Now(),
		MemoryTotal: ms.Sys,
		MemoryUsed:  ms.Alloc,
		Goroutines:  runtime.NumGoroutine(),
	}
	if stats.MemoryTotal > 0 {
		stats.MemoryUsage = float64(stats.MemoryUsed) / float64(stats.MemoryTotal) * 100
	}
	m.stats = append(m.stats, stats)
	return stats
}

func (m *Monitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.printStats(m.collectStats())
			case <-m.stopChan:
				return
			}
		}
	}()
}

func (m *Monitor) Stop() { close(m.stopChan) }

func (m *Monitor) printStats(s SystemStats) {
	fmt.Printf("[%s] 内存: %.1f%% (%.1fMB/%.1fMB) | Goroutines: %d\n",
		s.Timestamp.Format("15:04:05"), s.MemoryUsage,
		float64(s.MemoryUsed)/1024/1024, float64(s.MemoryTotal)/1024/1024,
		s.Goroutines,
	)
}

func (m *Monitor) GenerateReport() {
	if len(m.stats) == 0 {
		fmt.Println("没有监控数据")
		return
	}
	var sumMem float64
	var sumGo int
	var maxMem float64
	var maxGo int
	for _, s := range m.stats {
		sumMem += s.MemoryUsage
		sumGo += s.Goroutines
		if s.MemoryUsage > maxMem {
			maxMem = s.MemoryUsage
		}
		if s.Goroutines > maxGo {
			maxGo = s.Goroutines
		}
	}
	n := float64(len(m.stats))
	fmt.Println("\n=== 监控报告 ===")
	fmt.Printf("持续: %v\n", m.stats[len(m.stats)-1].Timestamp.Sub(m.stats[0].Timestamp))
	fmt.Printf("平均内存: %.1f%%, 峰值内存: %.1f%%\n", sumMem/n, maxMem)
	fmt.Printf("平均Goroutine: %d, 峰值Goroutine: %d\n", int(float64(sumGo)/n+0.5), maxGo)
}

func (m *Monitor) SaveToFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _ = f.WriteString("Timestamp,MemoryUsage,MemoryTotal,MemoryUsed,Goroutines\n")
	for _, s := range m.stats {
		line := fmt.Sprintf("%s,%.2f,%d,%d,%d\n",
			s.Timestamp.Format("2006-01-02 15:04:05"), s.MemoryUsage,
			s.MemoryTotal, s.MemoryUsed, s.Goroutines,
		)
		_, _ = f.WriteString(line)
	}
	return nil
}

// -------------------- 聊天API压测 --------------------

type APITestStats struct {
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	AverageLatency     time.Duration
	MaxLatency         time.Duration
	MinLatency         time.Duration
	mu                 sync.Mutex
}

func (s *APITestStats) Add(success bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalRequests++
	if success {
		s.SuccessfulRequests++
		if s.AverageLatency == 0 {
			s.AverageLatency = latency
			s.MaxLatency = latency
			s.MinLatency = latency
		} else {
			s.AverageLatency = (s.AverageLatency + latency) / 2
			if latency > s.MaxLatency {
				s.MaxLatency = latency
			}
			if latency < s.MinLatency {
				s.MinLatency = latency
			}
		}
	} else {
		s.FailedRequests++
	}
}

// apiResponse 服务端统一响应信封
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// chatClient 一个已登录的压测用户
type chatClient struct {
	base  string
	token string
	http  *http.Client
}

func newChatClient(base string) *chatClient {
	return &chatClient{
		base: base,
		http: &http.Client{Timeout: 8 * time.Second},
	}
}

// call 发送JSON请求并解出data，code非0视为业务失败
func (c *chatClient) call(method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if envelope.Code != 0 {
		return fmt.Errorf("业务错误 code=%d message=%s", envelope.Code, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

// login 注册并登录一个一次性压测账号
func (c *chatClient) login(username string) error {
	register := map[string]string{
		"username": username,
		"email":    username + "@bench.local",
		"password": "bench-pass-123",
	}
	if err := c.call("POST", "/api/v1/users/register", register, nil); err != nil {
		return fmt.Errorf("注册失败: %w", err)
	}

	loginReq := map[string]string{
		"usernameOrEmail": username,
		"password":        "bench-pass-123",
		"deviceName":      "bench",
		"deviceType":      "cli",
	}
	var loginResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.call("POST", "/api/v1/users/login", loginReq, &loginResp); err != nil {
		return fmt.Errorf("登录失败: %w", err)
	}
	c.token = loginResp.AccessToken
	return nil
}

func (c *chatClient) createRoom(name string) (roomID uint, link string, err error) {
	var room struct {
		ID   uint   `json:"id"`
		Link string `json:"link"`
	}
	if err := c.call("POST", "/api/v1/rooms", map[string]string{"name": name}, &room); err != nil {
		return 0, "", err
	}
	return room.ID, room.Link, nil
}

func (c *chatClient) joinByLink(link string) error {
	return c.call("POST", "/api/v1/rooms/join", map[string]string{"link": link}, nil)
}

// sendMessage 发一条消息并返回消息ID
func (c *chatClient) sendMessage(roomID uint, content string) (uint, error) {
	body := map[string]interface{}{"room_id": roomID, "content": content}
	var message struct {
		ID uint `json:"id"`
	}
	if err := c.call("POST", "/api/v1/messages", body, &message); err != nil {
		return 0, err
	}
	return message.ID, nil
}

func (c *chatClient) markRead(messageID uint) error {
	return c.call("PUT", fmt.Sprintf("/api/v1/messages/%d/read", messageID), nil, nil)
}

func (c *chatClient) getUnread(roomID uint) error {
	return c.call("GET", fmt.Sprintf("/api/v1/rooms/%d/unread", roomID), nil, nil)
}

// worker 压测主循环：发消息 → 标记已读 → 查未读
func worker(client *chatClient, roomID uint, rounds int, stats *APITestStats) {
	for i := 0; i < rounds; i++ {
		start := time.Now()
		messageID, err := client.sendMessage(roomID, fmt.Sprintf("bench message %d", i))
		stats.Add(err == nil, time.Since(start))
		if err != nil {
			continue
		}

		start = time.Now()
		err = client.markRead(messageID)
		stats.Add(err == nil, time.Since(start))

		start = time.Now()
		err = client.getUnread(roomID)
		stats.Add(err == nil, time.Since(start))

		time.Sleep(5 * time.Millisecond)
	}
}

func runChatBench(base string, concurrency, rounds int) {
	fmt.Println("\n=== 聊天API并发测试开始 ===")
	fmt.Printf("目标: %s 并发: %d 每协程轮次: %d\n", base, concurrency, rounds)

	// 每个并发协程一个独立账号，全部进同一个房间互相制造投递压力
	clients := make([]*chatClient, 0, concurrency)
	suffix := time.Now().UnixNano()
	for i := 0; i < concurrency; i++ {
		client := newChatClient(base)
		if err := client.login(fmt.Sprintf("bench_%d_%d", suffix, i)); err != nil {
			fmt.Println("准备压测账号失败:", err)
			return
		}
		clients = append(clients, client)
	}

	roomID, link, err := clients[0].createRoom(fmt.Sprintf("bench-room-%d", suffix))
	if err != nil {
		fmt.Println("创建压测房间失败:", err)
		return
	}
	for _, client := range clients[1:] {
		if err := client.joinByLink(link); err != nil {
			fmt.Println("加入压测房间失败:", err)
			return
		}
	}

	stats := &APITestStats{}
	var wg sync.WaitGroup
	start := time.Now()

	for _, client := range clients {
		wg.Add(1)
		go func(c *chatClient) {
			defer wg.Done()
			worker(c, roomID, rounds, stats)
		}(client)
	}
	wg.Wait()

	took := time.Since(start)
	fmt.Println("\n=== 聊天API测试结果 ===")
	fmt.Printf("耗时: %v\n", took)
	fmt.Printf("总请求: %d 成功: %d 失败: %d\n", stats.TotalRequests, stats.SuccessfulRequests, stats.FailedRequests)
	fmt.Printf("延迟 平均: %v 最大: %v 最小: %v\n", stats.AverageLatency, stats.MaxLatency, stats.MinLatency)
	if took > 0 {
		qps := float64(stats.SuccessfulRequests) / took.Seconds()
		fmt.Printf("QPS: %.2f\n", qps)
	}
	if stats.TotalRequests > 0 {
		rate := float64(stats.SuccessfulRequests) / float64(stats.TotalRequests) * 100
		fmt.Printf("成功率: %.2f%%\n", rate)
	}
}

// -------------------- 入口 --------------------

func main() {
	// 解析命令行参数
	var concurrency, rounds, monitorSeconds int

	if len(os.Args) > 1 {
		if val, err := strconv.Atoi(os.Args[1]); err == nil {
			concurrency = val
		} else {
			concurrency = 5
		}
	} else {
		concurrency = 5
	}

	if len(os.Args) > 2 {
		if val, err := strconv.Atoi(os.Args[2]); err == nil {
			rounds = val
		} else {
			rounds = 10
		}
	} else {
		rounds = 10
	}

	if len(os.Args) > 3 {
		if val, err := strconv.Atoi(os.Args[3]); err == nil {
			monitorSeconds = val
		} else {
			monitorSeconds = 20
		}
	} else {
		monitorSeconds = 20
	}

	// 配置
	baseURL := "http://localhost:8080"

	fmt.Println("=== 聊天服务并发与监控测试 ===")
	fmt.Printf("开始时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("目标: %s 并发: %d 每协程轮次: %d 监控: %ds\n", baseURL, concurrency, rounds, monitorSeconds)

	mon := NewMonitor(1 * time.Second)
	mon.Start()
	go func() {
		time.Sleep(time.Duration(monitorSeconds) * time.Second)
		mon.Stop()
	}()

	runChatBench(baseURL, concurrency, rounds)

	// 等待监控结束
	time.Sleep(time.Duration(monitorSeconds+1) * time.Second)
	mon.GenerateReport()
	if err := mon.SaveToFile("system_monitor.csv"); err != nil {
		fmt.Println("保存监控数据失败:", err)
	} else {
		fmt.Println("监控数据已保存: system_monitor.csv")
	}

	fmt.Println("\n=== 测试完成 ===")
}
