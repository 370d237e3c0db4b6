// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "phantomdb")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/phantomdb.log")

	viper.SetDefault("products", "/corral-secure/projects/A2CPS/products/mris")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "phantom.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "phantomdb")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "phantomdb")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("confluence.url", "https://confluence.a2cps.org/")
	viper.SetDefault("confluence.pageid", "44237591")
	viper.SetDefault("confluence.pagetitle", "Phantom Log")
	viper.SetDefault("confluence.secrets", "secrets.json")
}
