package main

import (
	"fmt"
	"time"
)

func main() {
	fmt.Println("Hello, Debugger!")
	result := add(5, 7)
	time.Sleep(10 * time.Hour)
	fmt.Printf("5 + 7 = %d\n", result)
}

func add(a, b int) int {
	return a + b
}
