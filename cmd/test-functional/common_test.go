package test_functional

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Enabled bool   `mapstructure:"ENABLED"`
		Host    string `mapstructure:"HOST"`
		Port    string `mapstructure:"PORT"`
	}
)

var AppBaseURL url.URL

func TestMain(m *testing.M) {
	viper.SetEnvPrefix("TEST_RUNNER")

	viper.SetDefault("ENABLED", false)
	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", "5000")

	envs := []string{"ENABLED", "HOST", "PORT"}
	for _, key := range envs {
		if err := viper.BindEnv(key); err != nil {
			panic(err)
		}
	}

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		panic(err)
	}

	if !cfg.Enabled {
		fmt.Println("functional tests disabled, set TEST_RUNNER_ENABLED=true to run against a live instance")
		os.Exit(0)
	}

	AppBaseURL = url.URL{
		Scheme: "http",
		Host:   cfg.Host + ":" + cfg.Port,
	}

	////////

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)

	cl := resty.New()
	pingURL := AppBaseURL
	pingURL.Path = "/ping"
	pingURLStr := pingURL.String()
	for {
		if pingCtx.Err() != nil {
			panic(pingCtx.Err())
		}
		resp, err := cl.R().Get(pingURLStr)
		if err != nil {
			panic(err)
		}
		if resp.String() == "pong" {
			break
		}
	}
	cancel()

	fmt.Println("pinged successfully")

	///////

	os.Exit(m.Run())
}
