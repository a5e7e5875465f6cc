package dfapp

import (
	appbase "github.com/dataforge/dataforge/app/base"
	_ "github.com/dataforge/dataforge/app/catalog"
	_ "github.com/dataforge/dataforge/app/dataset"
	_ "github.com/dataforge/dataforge/app/find"
)

var App = appbase.App
