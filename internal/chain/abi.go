package chain

// paymentABI covers the two payable entry points of the payment contract
// and the event it emits per transfer.
const paymentABI = `[
	{
		"type": "function",
		"name": "createPayment",
		"stateMutability": "payable",
		"inputs": [{"name": "recipient", "type": "address"}],
		"outputs": []
	},
	{
		"type": "function",
		"name": "batchPayment",
		"stateMutability": "payable",
		"inputs": [
			{"name": "recipients", "type": "address[]"},
			{"name": "amounts", "type": "uint256[]"}
		],
		"outputs": []
	},
	{
		"type": "event",
		"name": "PaymentCreated",
		"anonymous": false,
		"inputs": [
			{"name": "from", "type": "address", "indexed": true},
			{"name": "to", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	}
]`

const (
	methodCreatePayment = "createPayment"
	methodBatchPayment  = "batchPayment"
)
