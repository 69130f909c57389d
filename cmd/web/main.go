// @title           LaunchPad Payments API
// @version         1.0
// @description     Оплата билетов через Pesapal, ручные заявки и проверка билетов на входе.
// @contact.name    LaunchPad
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization

package main

import (
	"launchpad_backend/internal/app"

	_ "launchpad_backend/docs"
)

func main() {
	app.Run()
}
