package config

import (
	"os"
	"strconv"

	"gopkg.in/ini.v1"

	"proxyforge/internal/shared/types"
)

// LoadIni 加载 proxyforge.ini 行为配置文件。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return err
	}
	overrideFromEnvStr(&cfg.EngineConf.Mode, "PROXYFORGE_MODE")
	overrideFromEnvInt(&cfg.EngineConf.Concurrency, "PROXYFORGE_CONCURRENCY")
	return nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvStr(target *string, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		*target = envValue
	}
}
