package main

import "github.com/svetlov/news-admin/admincli/cmd"

func main() {
	cmd.Execute()
}
