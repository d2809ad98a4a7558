package configwatcher

import (
	"context"
	"focusmath_backend/internal/config"
	"focusmath_backend/pkg/logger"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type ConfigReloader func(cfg *config.Config)

const debounce = time.Second

// WatchConfig 监听配置文件变更，防抖后重新加载并回调，ctx 取消时退出
func WatchConfig(ctx context.Context, configFile string, reloader ConfigReloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(configFile)
	if err != nil {
		watcher.Close()
		return err
	}

	// 监听目录而非文件，编辑器保存时常会替换文件
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		timer := time.NewTimer(debounce)
		if !timer.Stop() {
			<-timer.C
		}

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					timer.Reset(debounce)
				}
			case <-timer.C:
				newCfg, err := config.LoadConfig(filepath.Dir(absPath))
				if err != nil {
					logger.Log.Error("Failed to reload config", zap.Error(err))
					continue
				}
				logger.Log.Info("Config reloaded", zap.String("file", absPath))
				reloader(newCfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Log.Error("Config watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}
