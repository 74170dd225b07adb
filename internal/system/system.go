package system

import (
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

// InitResourceLimits raises the open-file limit. Every MJPEG viewer and
// every recorder ffmpeg pipe holds descriptors.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not read open-file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not raise open-file limit: %v", err)
	} else {
		fmt.Printf("[*] Open-file limit raised to %d\n", rLimit.Cur)
	}
}

// CheckFFmpeg reports whether an ffmpeg binary is on PATH.
func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return nil
}

// Hardware encoders in order of preference. libx264 is the fallback.
var hwEncoders = []string{"h264_videotoolbox", "h264_nvenc"}

var (
	encoderOnce sync.Once
	bestEncoder string
)

// GetBestH264Encoder asks ffmpeg once for its encoder list and returns the
// preferred available H.264 encoder.
func GetBestH264Encoder() string {
	encoderOnce.Do(func() {
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		if err != nil {
			log.Printf("[!] ffmpeg -encoders failed, using libx264: %v", err)
			out = nil
		}
		bestEncoder = pickEncoder(string(out))
	})
	return bestEncoder
}

func pickEncoder(encoders string) string {
	for _, name := range hwEncoders {
		if strings.Contains(encoders, name) {
			return name
		}
	}
	return "libx264"
}
